package utils

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/models"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22"))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("0x123"))
	assert.Error(t, ValidateAddress("18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22"))
}

func TestIsValidBytes32(t *testing.T) {
	assert.True(t, IsValidBytes32("0x00000000000000000000000000000000000000000000000000000000000000aa"))
	assert.False(t, IsValidBytes32("0x00aa"))
	assert.False(t, IsValidBytes32("not-a-hash"))
	assert.False(t, IsValidBytes32(""))
}

func TestValidateSplits(t *testing.T) {
	tests := []struct {
		name    string
		splits  []models.Split
		wantErr string
	}{
		{
			name: "ValidPair",
			splits: []models.Split{
				{Recipient: "0xaaaa000000000000000000000000000000000001", Bps: 7000},
				{Recipient: "0xaaaa000000000000000000000000000000000002", Bps: 3000},
			},
		},
		{
			name: "SumTooLow",
			splits: []models.Split{
				{Recipient: "0xaaaa000000000000000000000000000000000001", Bps: 7000},
				{Recipient: "0xaaaa000000000000000000000000000000000002", Bps: 2800},
			},
			wantErr: "splits sum to 9800, expected 10000",
		},
		{
			name: "BpsOutOfRange",
			splits: []models.Split{
				{Recipient: "0xaaaa000000000000000000000000000000000001", Bps: 10001},
			},
			wantErr: "outside [0, 10000]",
		},
		{
			name: "EmptyRecipient",
			splits: []models.Split{
				{Recipient: "", Bps: 10000},
			},
			wantErr: "split recipient cannot be empty",
		},
		{
			name:    "NoSplits",
			splits:  []models.Split{},
			wantErr: "splits sum to 0, expected 10000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSplits(tt.splits)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSplitMismatch))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMilestonePercentages(t *testing.T) {
	tests := []struct {
		name       string
		milestones []models.MilestonePlan
		wantErr    bool
	}{
		{
			name: "ValidThreeWay",
			milestones: []models.MilestonePlan{
				{Title: "Design", Percentage: 30, DueDays: 7},
				{Title: "Build", Percentage: 30, DueDays: 14},
				{Title: "Launch", Percentage: 40, DueDays: 21},
			},
		},
		{
			name: "SingleFull",
			milestones: []models.MilestonePlan{
				{Title: "All", Percentage: 100},
			},
		},
		{
			name:       "Empty",
			milestones: nil,
			wantErr:    true,
		},
		{
			name: "SumBelowHundred",
			milestones: []models.MilestonePlan{
				{Title: "A", Percentage: 30},
				{Title: "B", Percentage: 30},
			},
			wantErr: true,
		},
		{
			name: "ZeroPercentage",
			milestones: []models.MilestonePlan{
				{Title: "A", Percentage: 0},
				{Title: "B", Percentage: 100},
			},
			wantErr: true,
		},
		{
			name: "NegativeDueDays",
			milestones: []models.MilestonePlan{
				{Title: "A", Percentage: 100, DueDays: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMilestonePercentages(tt.milestones)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMilestoneMismatch))
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestRequirementsFor(t *testing.T) {
	tests := []struct {
		name       string
		entityType models.EntityType
		payoutMode models.PayoutMode
		want       Requirements
		wantErr    bool
	}{
		{
			name:       "AgencyMultiPayee",
			entityType: models.EntityAgency,
			payoutMode: models.PayoutMultiPayee,
			want: Requirements{
				EscrowRequired:     true,
				SplitsRequired:     true,
				MilestonesRequired: true,
				ReleaseCondition:   models.ReleaseOnMilestone,
				AcceptanceDays:     14,
			},
		},
		{
			name:       "AgencySinglePayee",
			entityType: models.EntityAgency,
			payoutMode: models.PayoutSinglePayee,
			want: Requirements{
				EscrowRequired:     true,
				MilestonesRequired: true,
				ReleaseCondition:   models.ReleaseOnMilestone,
				AcceptanceDays:     14,
			},
		},
		{
			name:       "Company",
			entityType: models.EntityCompany,
			payoutMode: models.PayoutSinglePayee,
			want: Requirements{
				EscrowRequired:   true,
				ReleaseCondition: models.ReleaseOnApproval,
				AcceptanceDays:   7,
			},
		},
		{
			name:       "Freelancer",
			entityType: models.EntityFreelancer,
			payoutMode: models.PayoutSinglePayee,
			want: Requirements{
				EscrowRequired:   true,
				ReleaseCondition: models.ReleaseOnDelivery,
				AcceptanceDays:   7,
			},
		},
		{
			name:       "IndividualSkipsEscrow",
			entityType: models.EntityIndividual,
			payoutMode: models.PayoutSinglePayee,
			want: Requirements{
				ReleaseCondition: models.ReleaseOnDelivery,
				AcceptanceDays:   3,
			},
		},
		{
			name:       "UnknownEntity",
			entityType: models.EntityType("DAO"),
			payoutMode: models.PayoutSinglePayee,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequirementsFor(tt.entityType, tt.payoutMode)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownEntityType))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequirementHelpers(t *testing.T) {
	assert.True(t, IsSplitRequired(models.EntityAgency, models.PayoutMultiPayee))
	assert.False(t, IsSplitRequired(models.EntityAgency, models.PayoutSinglePayee))
	assert.True(t, IsMilestoneRequired(models.EntityAgency, models.PayoutSinglePayee))
	assert.False(t, IsMilestoneRequired(models.EntityCompany, models.PayoutSinglePayee))
}
