package models

import (
	"time"
)

// EscrowJob is a public listing that wraps one or more escrow intents as
// ordered milestones. Milestone amounts are a percentage split of the job
// total; the last milestone absorbs the rounding remainder so the amounts
// always sum to the total exactly.
type EscrowJob struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	Tags             []string             `json:"tags,omitempty"`
	RecipientID      string               `json:"recipient_id"`
	TotalAmount      string               `json:"total_amount"` // base units, decimal string
	FundingAsset     string               `json:"funding_asset"`
	PayoutAsset      string               `json:"payout_asset"`
	ReleaseCondition ReleaseCondition     `json:"release_condition"`
	Milestones       []EscrowJobMilestone `json:"milestones,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// EscrowJobMilestone belongs to exactly one job and references exactly one
// escrow intent, which carries its own independent lifecycle.
type EscrowJobMilestone struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	IntentID   string    `json:"intent_id"`
	Position   int       `json:"position"`
	Title      string    `json:"title"`
	Percentage int       `json:"percentage"`
	Amount     string    `json:"amount"` // base units, decimal string
	DueDays    int       `json:"due_days"`
	CreatedAt  time.Time `json:"created_at"`
}

// MilestonePlan is the caller-supplied definition of one milestone before
// amounts are computed. Due days are a validated integer at this boundary;
// display strings are never parsed here.
type MilestonePlan struct {
	Title      string `json:"title" binding:"required"`
	Percentage int    `json:"percentage" binding:"required"`
	DueDays    int    `json:"due_days"`
}
