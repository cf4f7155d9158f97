package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyLinked is returned when an intent's on-chain identity has
	// already been assigned. The assignment is one-time.
	ErrAlreadyLinked = errors.New("intent already linked")
)

// Database defines the methods that a database implementation must provide
type Database interface {
	Close() error
	Ping() error
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	InitDB(ctx context.Context) error

	// Recipients
	CreateRecipient(ctx context.Context, recipient *models.Recipient) error
	GetRecipient(ctx context.Context, id string) (*models.Recipient, error)
	ListRecipients(ctx context.Context) ([]*models.Recipient, error)
	CreateSplitTemplate(ctx context.Context, template *models.RecipientSplitTemplate) error
	ListSplitTemplates(ctx context.Context, recipientID string) ([]*models.RecipientSplitTemplate, error)

	// Escrow intents
	CreateIntent(ctx context.Context, intent *models.EscrowIntent) error
	GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error)
	GetIntentByOnchainID(ctx context.Context, chainID uint64, onchainID string) (*models.EscrowIntent, error)
	ListIntents(ctx context.Context, page, pageSize int, status string) ([]*models.EscrowIntent, int, error)
	ListIntentsByRecipient(ctx context.Context, recipientID string) ([]*models.EscrowIntent, error)
	UpdateIntentStatus(ctx context.Context, id string, status models.EscrowStatus) error
	LinkIntent(ctx context.Context, id, onchainID, txHash string) error
	SumLockedByAsset(ctx context.Context, chainID uint64) (map[string]string, error)

	// Jobs
	CreateJobWithMilestones(ctx context.Context, job *models.EscrowJob, intents []*models.EscrowIntent) error
	GetJob(ctx context.Context, id string) (*models.EscrowJob, error)
	ListJobs(ctx context.Context) ([]*models.EscrowJob, error)

	// Chain events and cursors
	InsertChainEvent(ctx context.Context, event *models.ChainEvent) (bool, error)
	ListChainEvents(ctx context.Context, chainID uint64, limit int) ([]*models.ChainEvent, error)
	GetEventCursor(ctx context.Context, chainID uint64, source models.EventSource) (uint64, error)
	UpdateEventCursor(ctx context.Context, chainID uint64, source models.EventSource, blockNumber uint64) error

	// Treasury snapshots
	InsertTreasurySnapshots(ctx context.Context, snapshots []*models.TreasurySnapshot) error
	ListTreasurySnapshots(ctx context.Context, chainID uint64, asset string, limit int) ([]*models.TreasurySnapshot, error)
}
