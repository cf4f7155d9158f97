package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/registry"
	"github.com/tesoro-hq/tesoro/api/utils"
)

// JobService turns a job definition into its milestone escrow intents. Each
// milestone references one independent intent; amounts are an integer split
// of the job total with the last milestone absorbing the rounding remainder.
type JobService struct {
	db       db.Database
	registry *registry.Registry
	logger   zerolog.Logger
}

// NewJobService creates a new JobService instance
func NewJobService(database db.Database, reg *registry.Registry, logger zerolog.Logger) *JobService {
	return &JobService{
		db:       database,
		registry: reg,
		logger:   logger.With().Str(logging.FieldModule, "job_service").Logger(),
	}
}

// CreateJob validates the milestone plan, generates one escrow intent per
// milestone and persists job, intents and milestones in a single
// transaction.
func (s *JobService) CreateJob(ctx context.Context, req *models.CreateJobRequest) (*models.EscrowJob, error) {
	if err := utils.ValidateMilestonePercentages(req.Milestones); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	recipient, err := s.db.GetRecipient(ctx, req.Intent.RecipientID)
	if err != nil {
		return nil, err
	}

	requirements, err := utils.RequirementsFor(recipient.EntityType, recipient.PayoutMode)
	if err != nil {
		return nil, err
	}

	pref, err := registry.ParseRoutePreference(req.Intent.RoutePreference)
	if err != nil {
		return nil, err
	}

	route, err := s.registry.DecideRoute(req.Intent.ChainID, req.Intent.FundingAsset, req.Intent.PayoutAsset, pref)
	if err != nil {
		return nil, err
	}

	total, err := utils.ParseBaseUnits(req.Intent.Amount, route.FundingAsset.Decimals)
	if err != nil {
		return nil, err
	}

	percentages := make([]int, len(req.Milestones))
	for i, m := range req.Milestones {
		percentages[i] = m.Percentage
	}
	amounts := utils.SplitByPercentages(total, percentages)

	releaseCondition := req.Intent.ReleaseCondition
	if releaseCondition == "" {
		releaseCondition = requirements.ReleaseCondition
	}
	acceptanceDays := req.Intent.AcceptanceDays
	if acceptanceDays == 0 {
		acceptanceDays = requirements.AcceptanceDays
	}
	deadlineDays := req.Intent.DeadlineDays
	if deadlineDays == 0 {
		deadlineDays = DefaultDeadlineDays
	}

	job := &models.EscrowJob{
		ID:               utils.GenerateID(),
		Title:            req.Title,
		Description:      req.Description,
		Tags:             req.Tags,
		RecipientID:      recipient.ID,
		TotalAmount:      total.String(),
		FundingAsset:     route.FundingAsset.Symbol,
		PayoutAsset:      route.PayoutAsset.Symbol,
		ReleaseCondition: releaseCondition,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	intents := make([]*models.EscrowIntent, len(req.Milestones))
	for i, plan := range req.Milestones {
		intent := &models.EscrowIntent{
			ID:                utils.GenerateID(),
			ChainID:           req.Intent.ChainID,
			RecipientID:       recipient.ID,
			EntityType:        recipient.EntityType,
			FundingAsset:      route.FundingAsset.Symbol,
			PayoutAsset:       route.PayoutAsset.Symbol,
			Amount:            amounts[i].String(),
			ReleaseCondition:  releaseCondition,
			DeadlineDays:      deadlineDays,
			AcceptanceDays:    acceptanceDays,
			YieldEnabled:      req.Intent.YieldEnabled,
			ProtectionEnabled: req.Intent.ProtectionEnabled,
			Splits:            req.Intent.Splits,
			Notes:             req.Intent.Notes,
			Status:            models.EscrowStatusCreated,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}
		intents[i] = intent

		job.Milestones = append(job.Milestones, models.EscrowJobMilestone{
			ID:         utils.GenerateID(),
			JobID:      job.ID,
			IntentID:   intent.ID,
			Position:   i + 1,
			Title:      plan.Title,
			Percentage: plan.Percentage,
			Amount:     intent.Amount,
			DueDays:    plan.DueDays,
			CreatedAt:  time.Now(),
		})
	}

	if err := s.db.CreateJobWithMilestones(ctx, job, intents); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("milestones", len(job.Milestones)).
		Str(logging.FieldAsset, job.FundingAsset).
		Msg("Created job with milestone escrows")

	return job, nil
}

// GetJob retrieves a job and its milestones
func (s *JobService) GetJob(ctx context.Context, id string) (*models.EscrowJob, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.GetJob(ctx, id)
}

// ListJobs retrieves all jobs
func (s *JobService) ListJobs(ctx context.Context) ([]*models.EscrowJob, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListJobs(ctx)
}
