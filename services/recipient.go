package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/utils"
)

// RecipientService manages recipient profiles and their reusable split
// templates.
type RecipientService struct {
	db     db.Database
	logger zerolog.Logger
}

// NewRecipientService creates a new RecipientService instance
func NewRecipientService(database db.Database, logger zerolog.Logger) *RecipientService {
	return &RecipientService{
		db:     database,
		logger: logger.With().Str(logging.FieldModule, "recipient_service").Logger(),
	}
}

// CreateRecipient validates and persists a recipient profile together with
// any supplied split templates.
func (s *RecipientService) CreateRecipient(ctx context.Context, req *models.CreateRecipientRequest) (*models.Recipient, error) {
	if err := utils.ValidateAddress(req.Wallet); err != nil {
		return nil, err
	}

	payoutMode := req.PayoutMode
	if payoutMode == "" {
		payoutMode = models.PayoutSinglePayee
	}

	// Reject unknown entity types before writing anything.
	if _, err := utils.RequirementsFor(req.EntityType, payoutMode); err != nil {
		return nil, err
	}

	for _, template := range req.SplitTemplates {
		if err := utils.ValidateSplits(template.Splits); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	recipient := &models.Recipient{
		ID:            utils.GenerateID(),
		Name:          req.Name,
		Wallet:        req.Wallet,
		EntityType:    req.EntityType,
		PayoutMode:    payoutMode,
		PayoutAsset:   req.PayoutAsset,
		AccountingRef: req.AccountingRef,
		PolicyNotes:   req.PolicyNotes,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.db.CreateRecipient(ctx, recipient); err != nil {
		return nil, err
	}

	for _, template := range req.SplitTemplates {
		t := &models.RecipientSplitTemplate{
			ID:          utils.GenerateID(),
			RecipientID: recipient.ID,
			Name:        template.Name,
			Splits:      template.Splits,
			CreatedAt:   time.Now(),
		}
		if err := s.db.CreateSplitTemplate(ctx, t); err != nil {
			return nil, err
		}
		recipient.SplitTemplates = append(recipient.SplitTemplates, *t)
	}

	s.logger.Info().
		Str("recipient_id", recipient.ID).
		Str("entity_type", string(recipient.EntityType)).
		Msg("Created recipient")

	return recipient, nil
}

// GetRecipient retrieves a recipient by ID
func (s *RecipientService) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.GetRecipient(ctx, id)
}

// ListRecipients retrieves all recipients
func (s *RecipientService) ListRecipients(ctx context.Context) ([]*models.Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListRecipients(ctx)
}
