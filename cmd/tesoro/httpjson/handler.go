package httpjson

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/db"
	web "github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/services"
)

type handler struct {
	*gin.Engine

	deps   Dependencies
	logger zerolog.Logger
}

type Config struct {
	Dependencies

	Addr           string
	AllowedOrigins string
	LogRequests    bool

	Logger zerolog.Logger
}

type Dependencies struct {
	Database   db.Database
	Recipients RecipientService
	Intents    IntentService
	Jobs       JobService
	Treasury   TreasuryService
	Metrics    *services.MetricsService
}

// RecipientService defines the recipient operations the API exposes
type RecipientService interface {
	CreateRecipient(ctx context.Context, req *models.CreateRecipientRequest) (*models.Recipient, error)
	GetRecipient(ctx context.Context, id string) (*models.Recipient, error)
	ListRecipients(ctx context.Context) ([]*models.Recipient, error)
}

// IntentService defines the escrow intent operations the API exposes
type IntentService interface {
	PrepareCreation(ctx context.Context, req *models.CreateIntentRequest) (*services.CreationPayload, error)
	LinkConfirmation(ctx context.Context, id string, req *models.LinkIntentRequest) (*models.EscrowIntent, error)
	PrepareDefaults(ctx context.Context, recipientID string) (*models.IntentDefaults, error)
	GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error)
	ListIntents(ctx context.Context, page, pageSize int, status string) ([]*models.EscrowIntent, int, error)
	ListIntentsByRecipient(ctx context.Context, recipientID string) ([]*models.EscrowIntent, error)
}

// JobService defines the job operations the API exposes
type JobService interface {
	CreateJob(ctx context.Context, req *models.CreateJobRequest) (*models.EscrowJob, error)
	GetJob(ctx context.Context, id string) (*models.EscrowJob, error)
	ListJobs(ctx context.Context) ([]*models.EscrowJob, error)
}

// TreasuryService defines the treasury read operations the API exposes
type TreasuryService interface {
	Breakdown(ctx context.Context, chainID uint64) (*models.TreasuryBreakdown, error)
	ActivityFeed(ctx context.Context, chainID uint64, limit int) ([]*models.ChainEvent, error)
	History(ctx context.Context, chainID uint64, asset string, limit int) ([]*models.TreasurySnapshot, error)
}

const (
	requestTimeout = 10 * time.Second
	rwTimeout      = 15 * time.Second
	maxPageSize    = 100
)

var ErrParamRequired = errors.New("param required")

func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: newHandler(cfg, gin.New()),

		// Time to read the request headers/body
		ReadTimeout: rwTimeout,

		// Time to write the response
		WriteTimeout: rwTimeout,

		// Time to keep connections alive
		IdleTimeout: 60 * time.Second,

		// Max header bytes (1MB)
		MaxHeaderBytes: 1024 * 1024,
	}
}

func newHandler(cfg Config, router *gin.Engine) *handler {
	h := &handler{
		Engine: router,
		deps:   cfg.Dependencies,
		logger: cfg.Logger.With().Str(logging.FieldModule, "api").Logger(),
	}

	logLevel := zerolog.DebugLevel
	if cfg.LogRequests {
		logLevel = zerolog.InfoLevel
	}

	h.Use(
		gin.Recovery(),
		web.RequestLogger(cfg.Logger, logLevel),
		web.Timeout(requestTimeout, cfg.Logger),
		web.CORS(cfg.AllowedOrigins),
	)

	h.setupAPIRoutes()
	h.setupObservabilityRoutes()

	return h
}

func (h *handler) setupAPIRoutes() {
	v1 := h.Group("/api/v1")

	h.setupRecipientRoutes(v1)
	h.setupIntentRoutes(v1)
	h.setupJobRoutes(v1)
	h.setupTreasuryRoutes(v1)

	if h.deps.Metrics != nil {
		v1.GET("/metrics", h.getMetricsSummary)
	}
}

func (h *handler) getMetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sync": h.deps.Metrics.Summary()})
}

func (h *handler) setupObservabilityRoutes() {
	h.GET("/health", h.getHealthCheck)

	if h.deps.Metrics != nil {
		h.GET("/metrics", gin.WrapH(h.deps.Metrics.GetHandler()))
	}
}

func (h *handler) getHealthCheck(c *gin.Context) {
	status := gin.H{"status": "ok"}

	if h.deps.Database != nil {
		if err := h.deps.Database.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
	}

	c.JSON(http.StatusOK, status)
}

type paginationParams struct {
	Page     int
	PageSize int
}

var errPageSize = errors.Errorf("invalid page_size parameter (must be between 1 and %d)", maxPageSize)

func resolvePagination(c *gin.Context) (paginationParams, error) {
	var (
		pageRaw     = c.DefaultQuery("page", "1")
		pageSizeRaw = c.DefaultQuery("page_size", "20")
	)

	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		return paginationParams{}, errors.New("invalid page parameter")
	}

	pageSize, err := strconv.Atoi(pageSizeRaw)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		return paginationParams{}, errPageSize
	}

	return paginationParams{
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func resolveChainID(c *gin.Context) (uint64, error) {
	raw := c.Query("chain_id")
	if raw == "" {
		return 0, errors.Wrap(ErrParamRequired, "chain_id")
	}

	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid chain_id parameter")
	}
	return chainID, nil
}
