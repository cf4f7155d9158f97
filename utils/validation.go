package utils

import (
	"regexp"

	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/models"
)

var (
	// Address regex pattern (basic Ethereum address format)
	addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// Bytes32 regex pattern (for on-chain intent IDs and tx hashes)
	bytes32Regex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

var (
	ErrSplitMismatch      = errors.New("split bps do not sum to 10000")
	ErrMilestoneMismatch  = errors.New("milestone percentages do not sum to 100")
	ErrUnknownEntityType  = errors.New("unknown entity type")
)

// ValidateAddress validates an Ethereum address
func ValidateAddress(address string) error {
	if address == "" {
		return errors.New("address cannot be empty")
	}
	if !addressRegex.MatchString(address) {
		return errors.Errorf("invalid Ethereum address format: %s", address)
	}
	return nil
}

// IsValidBytes32 checks if a string is a valid bytes32 hex string
func IsValidBytes32(hash string) bool {
	return bytes32Regex.MatchString(hash)
}

// ValidateSplits checks a split configuration: every share must be within
// [0, 10000] bps with a valid recipient, and the shares must sum to exactly
// 10000. The error reports the actual total so callers can surface it
// verbatim ("splits sum to 9800, expected 10000").
func ValidateSplits(splits []models.Split) error {
	total := 0
	for _, s := range splits {
		if s.Bps < 0 || s.Bps > models.SplitTotalBps {
			return errors.Wrapf(ErrSplitMismatch, "split for %q has bps %d outside [0, %d]",
				s.Recipient, s.Bps, models.SplitTotalBps)
		}
		if s.Recipient == "" {
			return errors.Wrap(ErrSplitMismatch, "split recipient cannot be empty")
		}
		total += s.Bps
	}

	if total != models.SplitTotalBps {
		return errors.Wrapf(ErrSplitMismatch, "splits sum to %d, expected %d",
			total, models.SplitTotalBps)
	}

	return nil
}

// ValidateMilestonePercentages checks that milestone percentages are
// positive integers summing to exactly 100. No tolerance is applied.
func ValidateMilestonePercentages(milestones []models.MilestonePlan) error {
	if len(milestones) == 0 {
		return errors.Wrap(ErrMilestoneMismatch, "at least one milestone is required")
	}

	total := 0
	for i, m := range milestones {
		if m.Percentage <= 0 || m.Percentage > 100 {
			return errors.Wrapf(ErrMilestoneMismatch, "milestone %d has percentage %d outside [1, 100]",
				i+1, m.Percentage)
		}
		if m.DueDays < 0 {
			return errors.Wrapf(ErrMilestoneMismatch, "milestone %d has negative due days", i+1)
		}
		total += m.Percentage
	}

	if total != 100 {
		return errors.Wrapf(ErrMilestoneMismatch, "milestone percentages sum to %d, expected 100", total)
	}

	return nil
}

// Requirements are the entity-type-derived escrow requirements for one
// recipient profile.
type Requirements struct {
	EscrowRequired     bool
	SplitsRequired     bool
	MilestonesRequired bool
	ReleaseCondition   models.ReleaseCondition
	AcceptanceDays     int
}

// requirementRule is one row of the requirement decision table.
type requirementRule struct {
	entityType models.EntityType
	payoutMode models.PayoutMode // empty matches any payout mode

	requirements Requirements
}

// requirementRules is the requirement decision table, evaluated top-down
// with first match winning. Kept as an explicit table rather than nested
// conditionals so the policy stays auditable.
var requirementRules = []requirementRule{
	{
		// Agencies paying multiple payees must declare splits, and agency
		// work is always milestone-gated.
		entityType: models.EntityAgency,
		payoutMode: models.PayoutMultiPayee,
		requirements: Requirements{
			EscrowRequired:     true,
			SplitsRequired:     true,
			MilestonesRequired: true,
			ReleaseCondition:   models.ReleaseOnMilestone,
			AcceptanceDays:     14,
		},
	},
	{
		entityType: models.EntityAgency,
		requirements: Requirements{
			EscrowRequired:     true,
			MilestonesRequired: true,
			ReleaseCondition:   models.ReleaseOnMilestone,
			AcceptanceDays:     14,
		},
	},
	{
		entityType: models.EntityCompany,
		requirements: Requirements{
			EscrowRequired:   true,
			ReleaseCondition: models.ReleaseOnApproval,
			AcceptanceDays:   7,
		},
	},
	{
		entityType: models.EntityFreelancer,
		requirements: Requirements{
			EscrowRequired:   true,
			ReleaseCondition: models.ReleaseOnDelivery,
			AcceptanceDays:   7,
		},
	},
	{
		entityType: models.EntityIndividual,
		requirements: Requirements{
			ReleaseCondition: models.ReleaseOnDelivery,
			AcceptanceDays:   3,
		},
	},
}

// RequirementsFor resolves the requirement rules for a recipient profile.
// Returns ErrUnknownEntityType when no rule matches the entity type.
func RequirementsFor(entityType models.EntityType, payoutMode models.PayoutMode) (Requirements, error) {
	for _, rule := range requirementRules {
		if rule.entityType != entityType {
			continue
		}
		if rule.payoutMode != "" && rule.payoutMode != payoutMode {
			continue
		}
		return rule.requirements, nil
	}

	return Requirements{}, errors.Wrapf(ErrUnknownEntityType, "%q", entityType)
}

// IsSplitRequired reports whether the profile's rules force a split
// configuration.
func IsSplitRequired(entityType models.EntityType, payoutMode models.PayoutMode) bool {
	req, err := RequirementsFor(entityType, payoutMode)
	return err == nil && req.SplitsRequired
}

// IsMilestoneRequired reports whether the profile's rules force
// milestone-gated release.
func IsMilestoneRequired(entityType models.EntityType, payoutMode models.PayoutMode) bool {
	req, err := RequirementsFor(entityType, payoutMode)
	return err == nil && req.MilestonesRequired
}
