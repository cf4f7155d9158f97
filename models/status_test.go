package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	assert.True(t, EscrowStatusReleased.IsTerminal())
	assert.True(t, EscrowStatusRefunded.IsTerminal())
	assert.False(t, EscrowStatusCreated.IsTerminal())
	assert.False(t, EscrowStatusFunded.IsTerminal())
	assert.False(t, EscrowStatusSubmitted.IsTerminal())
	assert.False(t, EscrowStatusDisputed.IsTerminal())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from EscrowStatus
		to   EscrowStatus
		want bool
	}{
		{EscrowStatusCreated, EscrowStatusFunded, true},
		{EscrowStatusFunded, EscrowStatusSubmitted, true},
		{EscrowStatusFunded, EscrowStatusDisputed, true},
		{EscrowStatusFunded, EscrowStatusRefunded, true},
		{EscrowStatusSubmitted, EscrowStatusReleased, true},
		{EscrowStatusSubmitted, EscrowStatusRefunded, true},
		{EscrowStatusSubmitted, EscrowStatusDisputed, true},
		{EscrowStatusDisputed, EscrowStatusReleased, true},
		{EscrowStatusDisputed, EscrowStatusRefunded, true},

		// Illegal edges
		{EscrowStatusCreated, EscrowStatusReleased, false},
		{EscrowStatusCreated, EscrowStatusSubmitted, false},
		{EscrowStatusFunded, EscrowStatusReleased, false},
		{EscrowStatusFunded, EscrowStatusCreated, false},
		{EscrowStatusDisputed, EscrowStatusSubmitted, false},

		// Nothing leaves a terminal state
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusRefunded, EscrowStatusFunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   EscrowStatus
		eventName string
		want      EscrowStatus
		wantOK    bool
	}{
		{
			name:      "FundedEventAppliesToCreated",
			current:   EscrowStatusCreated,
			eventName: EventIntentFunded,
			want:      EscrowStatusFunded,
			wantOK:    true,
		},
		{
			name:      "SubmittedEventAppliesToFunded",
			current:   EscrowStatusFunded,
			eventName: EventWorkSubmitted,
			want:      EscrowStatusSubmitted,
			wantOK:    true,
		},
		{
			name:      "ReleasedEventAppliesToSubmitted",
			current:   EscrowStatusSubmitted,
			eventName: EventIntentReleased,
			want:      EscrowStatusReleased,
			wantOK:    true,
		},
		{
			name:      "DisputeResolvesToRefund",
			current:   EscrowStatusDisputed,
			eventName: EventIntentRefunded,
			want:      EscrowStatusRefunded,
			wantOK:    true,
		},
		{
			name:      "ReplayOfCurrentStatusIsNoOp",
			current:   EscrowStatusFunded,
			eventName: EventIntentFunded,
			want:      EscrowStatusFunded,
			wantOK:    false,
		},
		{
			name:      "TerminalStateIgnoresEvents",
			current:   EscrowStatusReleased,
			eventName: EventIntentRefunded,
			want:      EscrowStatusReleased,
			wantOK:    false,
		},
		{
			name:      "IllegalEdgeIsNoOp",
			current:   EscrowStatusCreated,
			eventName: EventIntentReleased,
			want:      EscrowStatusCreated,
			wantOK:    false,
		},
		{
			name:      "StaleFundedEventAfterSubmission",
			current:   EscrowStatusSubmitted,
			eventName: EventIntentFunded,
			want:      EscrowStatusSubmitted,
			wantOK:    false,
		},
		{
			name:      "UnknownEventIsNoOp",
			current:   EscrowStatusFunded,
			eventName: "SomethingElse",
			want:      EscrowStatusFunded,
			wantOK:    false,
		},
		{
			name:      "CreationEventCarriesNoTransition",
			current:   EscrowStatusCreated,
			eventName: EventIntentCreated,
			want:      EscrowStatusCreated,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextStatus(tt.current, tt.eventName)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
