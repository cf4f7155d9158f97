package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/registry"
	"github.com/tesoro-hq/tesoro/api/utils"
)

const (
	// DefaultDBTimeout bounds individual database operations
	DefaultDBTimeout = 10 * time.Second

	// DefaultDeadlineDays applies when a request does not set a deadline
	DefaultDeadlineDays = 30
)

var (
	ErrSplitsRequired     = errors.New("split configuration required for this recipient")
	ErrMilestonesRequired = errors.New("milestone plan required for this recipient")
	ErrInvalidOnchainID   = errors.New("invalid onchain intent id")
)

// OnchainParams is the argument tuple for the escrow creation call. Deadline
// and acceptance window are absolute epoch seconds computed from the wall
// clock at preparation time, not at mining time.
type OnchainParams struct {
	EscrowAddress   string   `json:"escrow_address"`
	FundingToken    string   `json:"funding_token"`
	PayoutToken     string   `json:"payout_token"`
	Amount          string   `json:"amount"` // base units, decimal string
	Deadline        int64    `json:"deadline"`
	AcceptanceUntil int64    `json:"acceptance_until"`
	SplitRecipients []string `json:"split_recipients,omitempty"`
	SplitBps        []int    `json:"split_bps,omitempty"`
	YieldEnabled    bool     `json:"yield_enabled"`
	RoutePreference int      `json:"route_preference"`
}

// CreationPayload is everything a caller needs to submit the escrow creation
// transaction: the stored record, the resolved route and the on-chain call
// parameters.
type CreationPayload struct {
	Intent       *models.EscrowIntent   `json:"intent"`
	Route        registry.RouteDecision `json:"route"`
	Onchain      OnchainParams          `json:"onchain"`
	FundingToken string                 `json:"funding_token"`
	PayoutToken  string                 `json:"payout_token"`
}

// IntentService owns the off-chain side of the escrow intent lifecycle:
// record creation before any chain call, one-time linking to the confirmed
// on-chain identity, and entity-type-derived form defaults. Status beyond
// CREATED is written only by the sync service.
type IntentService struct {
	db       db.Database
	registry *registry.Registry
	logger   zerolog.Logger
}

// NewIntentService creates a new IntentService instance
func NewIntentService(database db.Database, reg *registry.Registry, logger zerolog.Logger) *IntentService {
	return &IntentService{
		db:       database,
		registry: reg,
		logger:   logger.With().Str(logging.FieldModule, "intent_service").Logger(),
	}
}

// PrepareCreation validates a creation request, resolves the swap route and
// persists the CREATED record. Route resolution happens before any write: a
// pair with no usable venue is rejected here, never after funds moved.
func (s *IntentService) PrepareCreation(ctx context.Context, req *models.CreateIntentRequest) (*CreationPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	recipient, err := s.db.GetRecipient(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	requirements, err := utils.RequirementsFor(recipient.EntityType, recipient.PayoutMode)
	if err != nil {
		return nil, err
	}

	pref, err := registry.ParseRoutePreference(req.RoutePreference)
	if err != nil {
		return nil, err
	}

	route, err := s.registry.DecideRoute(req.ChainID, req.FundingAsset, req.PayoutAsset, pref)
	if err != nil {
		return nil, err
	}

	baseUnits, err := utils.ParseBaseUnits(req.Amount, route.FundingAsset.Decimals)
	if err != nil {
		return nil, err
	}

	if requirements.SplitsRequired && len(req.Splits) == 0 {
		return nil, errors.Wrapf(ErrSplitsRequired, "recipient %s", recipient.ID)
	}
	if len(req.Splits) > 0 {
		if err := utils.ValidateSplits(req.Splits); err != nil {
			return nil, err
		}
	}

	releaseCondition := req.ReleaseCondition
	if releaseCondition == "" {
		releaseCondition = requirements.ReleaseCondition
	}
	acceptanceDays := req.AcceptanceDays
	if acceptanceDays == 0 {
		acceptanceDays = requirements.AcceptanceDays
	}
	deadlineDays := req.DeadlineDays
	if deadlineDays == 0 {
		deadlineDays = DefaultDeadlineDays
	}

	intent := &models.EscrowIntent{
		ID:                utils.GenerateID(),
		ChainID:           req.ChainID,
		RecipientID:       recipient.ID,
		EntityType:        recipient.EntityType,
		FundingAsset:      route.FundingAsset.Symbol,
		PayoutAsset:       route.PayoutAsset.Symbol,
		Amount:            baseUnits.String(),
		ReleaseCondition:  releaseCondition,
		DeadlineDays:      deadlineDays,
		AcceptanceDays:    acceptanceDays,
		YieldEnabled:      req.YieldEnabled,
		ProtectionEnabled: req.ProtectionEnabled,
		Splits:            req.Splits,
		MilestoneTemplate: req.MilestoneTemplate,
		Notes:             req.Notes,
		Status:            models.EscrowStatusCreated,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := s.db.CreateIntent(ctx, intent); err != nil {
		return nil, err
	}

	escrowAddr, err := s.registry.EscrowAddress(req.ChainID)
	if err != nil {
		return nil, err
	}

	splitRecipients := make([]string, 0, len(req.Splits))
	splitBps := make([]int, 0, len(req.Splits))
	for _, split := range req.Splits {
		splitRecipients = append(splitRecipients, split.Recipient)
		splitBps = append(splitBps, split.Bps)
	}

	now := time.Now()

	s.logger.Info().
		Str(logging.FieldIntent, intent.ID).
		Uint64(logging.FieldChain, intent.ChainID).
		Str(logging.FieldAsset, intent.FundingAsset).
		Bool("swap_required", route.SwapRequired).
		Msg("Prepared escrow intent")

	return &CreationPayload{
		Intent: intent,
		Route:  route,
		Onchain: OnchainParams{
			EscrowAddress:   escrowAddr,
			FundingToken:    route.FundingAsset.Address,
			PayoutToken:     route.PayoutAsset.Address,
			Amount:          intent.Amount,
			Deadline:        now.AddDate(0, 0, deadlineDays).Unix(),
			AcceptanceUntil: now.AddDate(0, 0, acceptanceDays).Unix(),
			SplitRecipients: splitRecipients,
			SplitBps:        splitBps,
			YieldEnabled:    req.YieldEnabled,
			RoutePreference: int(pref),
		},
		FundingToken: route.FundingAsset.Address,
		PayoutToken:  route.PayoutAsset.Address,
	}, nil
}

// LinkConfirmation binds an intent record to its mined creation transaction.
// The assignment is one-time; replaying the same link is a no-op and a
// conflicting link fails with db.ErrAlreadyLinked.
func (s *IntentService) LinkConfirmation(ctx context.Context, id string, req *models.LinkIntentRequest) (*models.EscrowIntent, error) {
	if !utils.IsValidBytes32(req.OnchainIntentID) {
		return nil, errors.Wrapf(ErrInvalidOnchainID, "%q", req.OnchainIntentID)
	}
	if !utils.IsValidBytes32(req.CreationTxHash) {
		return nil, errors.Wrapf(ErrInvalidOnchainID, "tx hash %q", req.CreationTxHash)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	if err := s.db.LinkIntent(ctx, id, req.OnchainIntentID, req.CreationTxHash); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str(logging.FieldIntent, id).
		Str(logging.FieldTxHash, req.CreationTxHash).
		Msg("Linked intent to onchain identity")

	return s.db.GetIntent(ctx, id)
}

// PrepareDefaults resolves the entity-type-derived defaults used to
// pre-populate the creation form for one recipient.
func (s *IntentService) PrepareDefaults(ctx context.Context, recipientID string) (*models.IntentDefaults, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	recipient, err := s.db.GetRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	requirements, err := utils.RequirementsFor(recipient.EntityType, recipient.PayoutMode)
	if err != nil {
		return nil, err
	}

	return &models.IntentDefaults{
		RecipientID:        recipient.ID,
		EntityType:         recipient.EntityType,
		ReleaseCondition:   requirements.ReleaseCondition,
		EscrowRequired:     requirements.EscrowRequired,
		SplitsRequired:     requirements.SplitsRequired,
		MilestonesRequired: requirements.MilestonesRequired,
		AcceptanceDays:     requirements.AcceptanceDays,
		PayoutAsset:        recipient.PayoutAsset,
		SplitTemplates:     recipient.SplitTemplates,
	}, nil
}

// GetIntent retrieves an intent by ID
func (s *IntentService) GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.GetIntent(ctx, id)
}

// ListIntents retrieves intents with pagination, optionally filtered by status
func (s *IntentService) ListIntents(ctx context.Context, page, pageSize int, status string) ([]*models.EscrowIntent, int, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListIntents(ctx, page, pageSize, status)
}

// ListIntentsByRecipient retrieves all intents for one recipient
func (s *IntentService) ListIntentsByRecipient(ctx context.Context, recipientID string) ([]*models.EscrowIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListIntentsByRecipient(ctx, recipientID)
}
