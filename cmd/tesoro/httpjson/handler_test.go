package httpjson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/services"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
)

type testSuite struct {
	t *testing.T

	Ctx        context.Context
	Client     *gentleman.Client
	Database   *db.MockDB
	Recipients *MockRecipientService
	Intents    *MockIntentService
	Jobs       *MockJobService
	Treasury   *MockTreasuryService

	Logger zerolog.Logger
}

func newTestSuite(t *testing.T) *testSuite {
	gin.SetMode(gin.TestMode)

	var (
		ctx      = context.Background()
		logger   = logging.NewTesting(t)
		router   = gin.New()
		database = &db.MockDB{}

		recipientMock = &MockRecipientService{}
		intentMock    = &MockIntentService{}
		jobMock       = &MockJobService{}
		treasuryMock  = &MockTreasuryService{}
	)

	cfg := Config{
		Logger:      logger,
		LogRequests: true,
		Dependencies: Dependencies{
			Database:   database,
			Recipients: recipientMock,
			Intents:    intentMock,
			Jobs:       jobMock,
			Treasury:   treasuryMock,
			Metrics:    nil,
		},
	}

	// Create handler
	h := newHandler(cfg, router)
	// Run test server
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client := gentleman.New()
	client.BaseURL(server.URL)

	return &testSuite{
		t:          t,
		Ctx:        ctx,
		Client:     client,
		Logger:     logger,
		Database:   database,
		Recipients: recipientMock,
		Intents:    intentMock,
		Jobs:       jobMock,
		Treasury:   treasuryMock,
	}
}

// MockRecipientService is a mock implementation of the RecipientService
type MockRecipientService struct {
	mock.Mock
}

func (m *MockRecipientService) CreateRecipient(
	ctx context.Context,
	req *models.CreateRecipientRequest,
) (*models.Recipient, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipient), args.Error(1)
}

func (m *MockRecipientService) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipient), args.Error(1)
}

func (m *MockRecipientService) ListRecipients(ctx context.Context) ([]*models.Recipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Recipient), args.Error(1)
}

// MockIntentService is a mock implementation of the IntentService
type MockIntentService struct {
	mock.Mock
}

func (m *MockIntentService) PrepareCreation(
	ctx context.Context,
	req *models.CreateIntentRequest,
) (*services.CreationPayload, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreationPayload), args.Error(1)
}

func (m *MockIntentService) LinkConfirmation(
	ctx context.Context,
	id string,
	req *models.LinkIntentRequest,
) (*models.EscrowIntent, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowIntent), args.Error(1)
}

func (m *MockIntentService) PrepareDefaults(ctx context.Context, recipientID string) (*models.IntentDefaults, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntentDefaults), args.Error(1)
}

func (m *MockIntentService) GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowIntent), args.Error(1)
}

func (m *MockIntentService) ListIntents(
	ctx context.Context,
	page, pageSize int,
	status string,
) ([]*models.EscrowIntent, int, error) {
	args := m.Called(ctx, page, pageSize, status)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.EscrowIntent), args.Int(1), args.Error(2)
}

func (m *MockIntentService) ListIntentsByRecipient(
	ctx context.Context,
	recipientID string,
) ([]*models.EscrowIntent, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EscrowIntent), args.Error(1)
}

// MockJobService is a mock implementation of the JobService
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, req *models.CreateJobRequest) (*models.EscrowJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowJob), args.Error(1)
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.EscrowJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowJob), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context) ([]*models.EscrowJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EscrowJob), args.Error(1)
}

// MockTreasuryService is a mock implementation of the TreasuryService
type MockTreasuryService struct {
	mock.Mock
}

func (m *MockTreasuryService) Breakdown(ctx context.Context, chainID uint64) (*models.TreasuryBreakdown, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TreasuryBreakdown), args.Error(1)
}

func (m *MockTreasuryService) ActivityFeed(
	ctx context.Context,
	chainID uint64,
	limit int,
) ([]*models.ChainEvent, error) {
	args := m.Called(ctx, chainID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChainEvent), args.Error(1)
}

func (m *MockTreasuryService) History(
	ctx context.Context,
	chainID uint64,
	asset string,
	limit int,
) ([]*models.TreasurySnapshot, error) {
	args := m.Called(ctx, chainID, asset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TreasurySnapshot), args.Error(1)
}

func TestHandler(t *testing.T) {
	t.Run("health check", func(t *testing.T) {
		// ARRANGE
		ts := newTestSuite(t)

		ts.Database.On("Ping").Return(nil)

		// ACT
		resp, err := ts.Client.Get().AddPath("/health").Do()

		// ASSERT
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assertResponseContainsJSON(t, resp, "status", "ok")
	})

	t.Run("health check degraded", func(t *testing.T) {
		// ARRANGE
		ts := newTestSuite(t)

		ts.Database.On("Ping").Return(assert.AnError)

		// ACT
		resp, err := ts.Client.Get().AddPath("/health").Do()

		// ASSERT
		require.NoError(t, err)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assertResponseContainsJSON(t, resp, "status", "degraded")
	})
}

func assertResponseContainsJSON(t *testing.T, res *gentleman.Response, path string, contains string) {
	r := gjson.GetBytes(res.Bytes(), path)

	assert.Contains(t, r.String(), contains, res.String())
}

func numOfArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = mock.Anything
	}
	return args
}
