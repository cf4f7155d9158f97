package models

import (
	"encoding/json"
	"time"
)

// EventSource identifies which synced contract emitted a log.
type EventSource string

const (
	SourceEscrow        EventSource = "ESCROW"
	SourceYieldManager  EventSource = "YIELD_MANAGER"
	SourceTreasuryVault EventSource = "TREASURY_VAULT"
)

// Escrow core event names. IntentCreated carries the on-chain intent id for
// a record created off chain; the rest drive status transitions. Dispute
// resolution emits IntentReleased or IntentRefunded, there is no separate
// resolution event.
const (
	EventIntentCreated  = "IntentCreated"
	EventIntentFunded   = "IntentFunded"
	EventWorkSubmitted  = "WorkSubmitted"
	EventIntentDisputed = "IntentDisputed"
	EventIntentReleased = "IntentReleased"
	EventIntentRefunded = "IntentRefunded"
)

// Yield manager and treasury vault event names. These are recorded for the
// activity feed and audit trail only; they do not move intent status.
const (
	EventYieldDeposited = "YieldDeposited"
	EventYieldWithdrawn = "YieldWithdrawn"
	EventRebalanced     = "Rebalanced"
	EventVaultDeposit   = "Deposit"
	EventVaultWithdraw  = "Withdraw"
)

// ChainEvent is one observed contract log, stored append-only and
// deduplicated on (tx_hash, log_index). Inserting the same log twice is a
// silent no-op, which makes replay after a crash or reorg safe.
type ChainEvent struct {
	ID              int64           `json:"id"`
	ChainID         uint64          `json:"chain_id"`
	Source          EventSource     `json:"source"`
	ContractAddress string          `json:"contract_address"`
	EventName       string          `json:"event_name"`
	TxHash          string          `json:"tx_hash"`
	BlockNumber     uint64          `json:"block_number"`
	LogIndex        uint            `json:"log_index"`
	OnchainIntentID *string         `json:"onchain_intent_id,omitempty"`
	Asset           *string         `json:"asset,omitempty"`
	Amount          *string         `json:"amount,omitempty"` // base units, decimal string
	Payload         json.RawMessage `json:"payload,omitempty"`
	BlockTime       time.Time       `json:"block_time"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EscrowEventCursor tracks the last fully processed block for one synced
// contract. It only ever moves forward, and is advanced strictly after all
// logs in the window were durably recorded.
type EscrowEventCursor struct {
	ChainID     uint64      `json:"chain_id"`
	Source      EventSource `json:"source"`
	BlockNumber uint64      `json:"block_number"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
