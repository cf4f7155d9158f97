package db

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
	"github.com/tesoro-hq/tesoro/api/models"
)

// MockDB is a mock implementation of the Database interface for testing
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(sql.Result), mockArgs.Error(1)
}

func (m *MockDB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(*sql.Row)
}

func (m *MockDB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(*sql.Rows), mockArgs.Error(1)
}

func (m *MockDB) InitDB(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDB) CreateRecipient(ctx context.Context, recipient *models.Recipient) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *MockDB) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipient), args.Error(1)
}

func (m *MockDB) ListRecipients(ctx context.Context) ([]*models.Recipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Recipient), args.Error(1)
}

func (m *MockDB) CreateSplitTemplate(ctx context.Context, template *models.RecipientSplitTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockDB) ListSplitTemplates(ctx context.Context, recipientID string) ([]*models.RecipientSplitTemplate, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecipientSplitTemplate), args.Error(1)
}

func (m *MockDB) CreateIntent(ctx context.Context, intent *models.EscrowIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockDB) GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowIntent), args.Error(1)
}

func (m *MockDB) GetIntentByOnchainID(ctx context.Context, chainID uint64, onchainID string) (*models.EscrowIntent, error) {
	args := m.Called(ctx, chainID, onchainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowIntent), args.Error(1)
}

func (m *MockDB) ListIntents(ctx context.Context, page, pageSize int, status string) ([]*models.EscrowIntent, int, error) {
	args := m.Called(ctx, page, pageSize, status)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.EscrowIntent), args.Int(1), args.Error(2)
}

func (m *MockDB) ListIntentsByRecipient(ctx context.Context, recipientID string) ([]*models.EscrowIntent, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EscrowIntent), args.Error(1)
}

func (m *MockDB) UpdateIntentStatus(ctx context.Context, id string, status models.EscrowStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDB) LinkIntent(ctx context.Context, id, onchainID, txHash string) error {
	args := m.Called(ctx, id, onchainID, txHash)
	return args.Error(0)
}

func (m *MockDB) SumLockedByAsset(ctx context.Context, chainID uint64) (map[string]string, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockDB) CreateJobWithMilestones(ctx context.Context, job *models.EscrowJob, intents []*models.EscrowIntent) error {
	args := m.Called(ctx, job, intents)
	return args.Error(0)
}

func (m *MockDB) GetJob(ctx context.Context, id string) (*models.EscrowJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowJob), args.Error(1)
}

func (m *MockDB) ListJobs(ctx context.Context) ([]*models.EscrowJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EscrowJob), args.Error(1)
}

func (m *MockDB) InsertChainEvent(ctx context.Context, event *models.ChainEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockDB) ListChainEvents(ctx context.Context, chainID uint64, limit int) ([]*models.ChainEvent, error) {
	args := m.Called(ctx, chainID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChainEvent), args.Error(1)
}

func (m *MockDB) GetEventCursor(ctx context.Context, chainID uint64, source models.EventSource) (uint64, error) {
	args := m.Called(ctx, chainID, source)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockDB) UpdateEventCursor(ctx context.Context, chainID uint64, source models.EventSource, blockNumber uint64) error {
	args := m.Called(ctx, chainID, source, blockNumber)
	return args.Error(0)
}

func (m *MockDB) InsertTreasurySnapshots(ctx context.Context, snapshots []*models.TreasurySnapshot) error {
	args := m.Called(ctx, snapshots)
	return args.Error(0)
}

func (m *MockDB) ListTreasurySnapshots(ctx context.Context, chainID uint64, asset string, limit int) ([]*models.TreasurySnapshot, error) {
	args := m.Called(ctx, chainID, asset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TreasurySnapshot), args.Error(1)
}
