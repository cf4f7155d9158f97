package models

// CreateRecipientRequest is the request body for registering a recipient.
type CreateRecipientRequest struct {
	Name          string     `json:"name" binding:"required"`
	Wallet        string     `json:"wallet" binding:"required"`
	EntityType    EntityType `json:"entity_type" binding:"required"`
	PayoutMode    PayoutMode `json:"payout_mode"`
	PayoutAsset   string     `json:"payout_asset"`
	AccountingRef string     `json:"accounting_ref"`
	PolicyNotes   string     `json:"policy_notes"`

	SplitTemplates []CreateSplitTemplateRequest `json:"split_templates"`
}

// CreateSplitTemplateRequest is one reusable split configuration supplied
// alongside a recipient.
type CreateSplitTemplateRequest struct {
	Name   string  `json:"name" binding:"required"`
	Splits []Split `json:"splits" binding:"required"`
}

// CreateIntentRequest is the request body for preparing an escrow intent.
// Amount is in base units as a decimal string; thousands separators are
// accepted.
type CreateIntentRequest struct {
	ChainID           uint64           `json:"chain_id" binding:"required"`
	RecipientID       string           `json:"recipient_id" binding:"required"`
	FundingAsset      string           `json:"funding_asset" binding:"required"`
	PayoutAsset       string           `json:"payout_asset" binding:"required"`
	Amount            string           `json:"amount" binding:"required"`
	ReleaseCondition  ReleaseCondition `json:"release_condition"`
	DeadlineDays      int              `json:"deadline_days"`
	AcceptanceDays    int              `json:"acceptance_days"`
	YieldEnabled      bool             `json:"yield_enabled"`
	ProtectionEnabled bool             `json:"protection_enabled"`
	RoutePreference   string           `json:"route_preference"`
	Splits            []Split          `json:"splits"`
	MilestoneTemplate string           `json:"milestone_template"`
	Notes             string           `json:"notes"`
}

// LinkIntentRequest binds an off-chain intent record to its confirmed
// on-chain identity. The assignment is one-time.
type LinkIntentRequest struct {
	OnchainIntentID string `json:"onchain_intent_id" binding:"required"`
	CreationTxHash  string `json:"creation_tx_hash" binding:"required"`
}

// CreateJobRequest is the request body for recording a public job split
// into milestone escrows.
type CreateJobRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	// Payment template applied to every generated intent.
	Intent CreateIntentRequest `json:"intent" binding:"required"`

	Milestones []MilestonePlan `json:"milestones" binding:"required"`
}

// IntentDefaults are the entity-type-derived defaults used to pre-populate
// the intent creation form for a recipient.
type IntentDefaults struct {
	RecipientID        string                   `json:"recipient_id"`
	EntityType         EntityType               `json:"entity_type"`
	ReleaseCondition   ReleaseCondition         `json:"release_condition"`
	EscrowRequired     bool                     `json:"escrow_required"`
	SplitsRequired     bool                     `json:"splits_required"`
	MilestonesRequired bool                     `json:"milestones_required"`
	AcceptanceDays     int                      `json:"acceptance_days"`
	PayoutAsset        string                   `json:"payout_asset,omitempty"`
	SplitTemplates     []RecipientSplitTemplate `json:"split_templates,omitempty"`
}
