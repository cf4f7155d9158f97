package models

import (
	"time"
)

// EntityType classifies a payout recipient. Requirement rules (escrow,
// splits, milestones) are keyed on this type.
type EntityType string

const (
	EntityIndividual EntityType = "INDIVIDUAL"
	EntityFreelancer EntityType = "FREELANCER"
	EntityCompany    EntityType = "COMPANY"
	EntityAgency     EntityType = "AGENCY"
)

// PayoutMode describes how a recipient distributes received funds.
type PayoutMode string

const (
	PayoutSinglePayee PayoutMode = "SINGLE_PAYEE"
	PayoutMultiPayee  PayoutMode = "MULTI_PAYEE"
)

// ReleaseCondition determines when escrowed funds become releasable.
type ReleaseCondition string

const (
	ReleaseOnApproval  ReleaseCondition = "ON_APPROVAL"
	ReleaseOnDelivery  ReleaseCondition = "ON_DELIVERY"
	ReleaseOnMilestone ReleaseCondition = "ON_MILESTONE"
)

// Split is one recipient share of a payout, expressed in basis points.
// A full split configuration always sums to 10000 bps.
type Split struct {
	Recipient string `json:"recipient"`
	Bps       int    `json:"bps"`
}

// SplitTotalBps is the required sum of a split configuration.
const SplitTotalBps = 10000

// Recipient is an organization's payee: vendor, partner, agency or
// contractor. The profile fields drive intent defaults via the
// entity-type requirement rules.
type Recipient struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Wallet         string                   `json:"wallet"`
	EntityType     EntityType               `json:"entity_type"`
	PayoutMode     PayoutMode               `json:"payout_mode"`
	PayoutAsset    string                   `json:"payout_asset"`
	AccountingRef  string                   `json:"accounting_ref,omitempty"`
	PolicyNotes    string                   `json:"policy_notes,omitempty"`
	SplitTemplates []RecipientSplitTemplate `json:"split_templates,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// RecipientSplitTemplate is a named, reusable split configuration scoped to
// a recipient. It pre-populates the split editor at intent creation time.
type RecipientSplitTemplate struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Name        string    `json:"name"`
	Splits      []Split   `json:"splits"`
	CreatedAt   time.Time `json:"created_at"`
}

// EscrowIntent is one funds-reservation-to-release unit. The off-chain row
// is created before any chain call; OnchainIntentID is assigned exactly once
// after the creation transaction is mined, and Status afterwards advances
// only in response to observed chain events.
type EscrowIntent struct {
	ID                string           `json:"id"`
	OnchainIntentID   *string          `json:"onchain_intent_id,omitempty"`
	CreationTxHash    *string          `json:"creation_tx_hash,omitempty"`
	ChainID           uint64           `json:"chain_id"`
	RecipientID       string           `json:"recipient_id"`
	EntityType        EntityType       `json:"entity_type"`
	FundingAsset      string           `json:"funding_asset"`
	PayoutAsset       string           `json:"payout_asset"`
	Amount            string           `json:"amount"` // base units, decimal string
	ReleaseCondition  ReleaseCondition `json:"release_condition"`
	DeadlineDays      int              `json:"deadline_days"`
	AcceptanceDays    int              `json:"acceptance_days"`
	YieldEnabled      bool             `json:"yield_enabled"`
	ProtectionEnabled bool             `json:"protection_enabled"`
	Splits            []Split          `json:"splits,omitempty"`
	MilestoneTemplate string           `json:"milestone_template,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Status            EscrowStatus     `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ToResponse converts an EscrowIntent to its API representation.
func (e *EscrowIntent) ToResponse() *EscrowIntentResponse {
	return &EscrowIntentResponse{
		ID:               e.ID,
		OnchainIntentID:  e.OnchainIntentID,
		CreationTxHash:   e.CreationTxHash,
		ChainID:          e.ChainID,
		RecipientID:      e.RecipientID,
		FundingAsset:     e.FundingAsset,
		PayoutAsset:      e.PayoutAsset,
		Amount:           e.Amount,
		ReleaseCondition: string(e.ReleaseCondition),
		Status:           string(e.Status),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// EscrowIntentResponse is the wire format for an escrow intent.
type EscrowIntentResponse struct {
	ID               string    `json:"id"`
	OnchainIntentID  *string   `json:"onchain_intent_id,omitempty"`
	CreationTxHash   *string   `json:"creation_tx_hash,omitempty"`
	ChainID          uint64    `json:"chain_id"`
	RecipientID      string    `json:"recipient_id"`
	FundingAsset     string    `json:"funding_asset"`
	PayoutAsset      string    `json:"payout_asset"`
	Amount           string    `json:"amount"`
	ReleaseCondition string    `json:"release_condition"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
