package models

// EscrowStatus represents the lifecycle state of an escrow intent.
// Note: these statuses mirror on-chain truth. The sync service is the only
// writer once an intent leaves CREATED; any status set elsewhere is an
// optimistic hint that the next reconciliation pass supersedes.
type EscrowStatus string

const (
	// EscrowStatusCreated indicates the off-chain record exists but funds
	// have not been locked on chain yet
	EscrowStatusCreated EscrowStatus = "CREATED"

	// EscrowStatusFunded indicates funds are locked in the escrow contract
	EscrowStatusFunded EscrowStatus = "FUNDED"

	// EscrowStatusSubmitted indicates the recipient submitted work or an
	// invoice against the escrow
	EscrowStatusSubmitted EscrowStatus = "SUBMITTED"

	// EscrowStatusDisputed indicates a dispute was raised; it resolves back
	// toward RELEASED or REFUNDED
	EscrowStatusDisputed EscrowStatus = "DISPUTED"

	// EscrowStatusReleased indicates funds were paid out (terminal)
	EscrowStatusReleased EscrowStatus = "RELEASED"

	// EscrowStatusRefunded indicates funds were returned to the treasury
	// (terminal)
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
)

// IsTerminal reports whether no further transitions are possible.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

// escrowTransitions is the directed lifecycle graph. Anything not listed
// here is an illegal edge.
var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusCreated:   {EscrowStatusFunded},
	EscrowStatusFunded:    {EscrowStatusSubmitted, EscrowStatusDisputed, EscrowStatusRefunded},
	EscrowStatusSubmitted: {EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusDisputed},
	EscrowStatusDisputed:  {EscrowStatusReleased, EscrowStatusRefunded},
}

// CanTransition reports whether moving from one status to another follows
// the lifecycle graph.
func CanTransition(from, to EscrowStatus) bool {
	for _, next := range escrowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// statusByEvent maps decoded escrow contract event names to the status they
// drive an intent toward.
var statusByEvent = map[string]EscrowStatus{
	EventIntentFunded:   EscrowStatusFunded,
	EventWorkSubmitted:  EscrowStatusSubmitted,
	EventIntentDisputed: EscrowStatusDisputed,
	EventIntentReleased: EscrowStatusReleased,
	EventIntentRefunded: EscrowStatusRefunded,
}

// NextStatus is the pure transition function applied during event replay.
// It returns the status an observed event moves the intent to, and whether
// the transition applies. Unknown events, transitions from a terminal state
// and edges outside the lifecycle graph return ok=false: replay treats them
// as no-ops, never as errors, so re-delivered or stale logs cannot corrupt
// state.
func NextStatus(current EscrowStatus, eventName string) (EscrowStatus, bool) {
	target, known := statusByEvent[eventName]
	if !known {
		return current, false
	}
	if current.IsTerminal() {
		return current, false
	}
	if current == target {
		// Replay of the event that produced the current status.
		return current, false
	}
	if !CanTransition(current, target) {
		return current, false
	}
	return target, true
}
