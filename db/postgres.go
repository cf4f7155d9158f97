package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/models"
)

// PostgresDB implements the Database interface using PostgreSQL
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	postgresDB := &PostgresDB{db: db}

	if err := postgresDB.InitDB(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	return postgresDB, nil
}

// NewPostgresDBWithConn wraps an existing connection, used by tests.
func NewPostgresDBWithConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}

// Exec executes a query without returning any rows
func (p *PostgresDB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (p *PostgresDB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows
func (p *PostgresDB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

// CreateRecipient inserts a new recipient
func (p *PostgresDB) CreateRecipient(ctx context.Context, recipient *models.Recipient) error {
	query := `
		INSERT INTO recipients (
			id, name, wallet, entity_type, payout_mode, payout_asset,
			accounting_ref, policy_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = time.Now()
	}
	if recipient.UpdatedAt.IsZero() {
		recipient.UpdatedAt = time.Now()
	}

	_, err := p.db.ExecContext(ctx, query,
		recipient.ID,
		recipient.Name,
		recipient.Wallet,
		recipient.EntityType,
		recipient.PayoutMode,
		recipient.PayoutAsset,
		recipient.AccountingRef,
		recipient.PolicyNotes,
		recipient.CreatedAt,
		recipient.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create recipient")
	}
	return nil
}

// GetRecipient retrieves a recipient by ID, including its split templates
func (p *PostgresDB) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	query := `
		SELECT id, name, wallet, entity_type, payout_mode, payout_asset,
		       accounting_ref, policy_notes, created_at, updated_at
		FROM recipients
		WHERE id = $1
	`

	var recipient models.Recipient
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&recipient.ID,
		&recipient.Name,
		&recipient.Wallet,
		&recipient.EntityType,
		&recipient.PayoutMode,
		&recipient.PayoutAsset,
		&recipient.AccountingRef,
		&recipient.PolicyNotes,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "recipient %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recipient")
	}

	templates, err := p.ListSplitTemplates(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		recipient.SplitTemplates = append(recipient.SplitTemplates, *t)
	}

	return &recipient, nil
}

// ListRecipients retrieves all recipients
func (p *PostgresDB) ListRecipients(ctx context.Context) ([]*models.Recipient, error) {
	query := `
		SELECT id, name, wallet, entity_type, payout_mode, payout_asset,
		       accounting_ref, policy_notes, created_at, updated_at
		FROM recipients
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query recipients")
	}
	defer rows.Close()

	var recipients []*models.Recipient
	for rows.Next() {
		var r models.Recipient
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Wallet,
			&r.EntityType,
			&r.PayoutMode,
			&r.PayoutAsset,
			&r.AccountingRef,
			&r.PolicyNotes,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan recipient")
		}
		recipients = append(recipients, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating recipients")
	}
	return recipients, nil
}

// CreateSplitTemplate inserts a reusable split configuration for a recipient
func (p *PostgresDB) CreateSplitTemplate(ctx context.Context, template *models.RecipientSplitTemplate) error {
	splits, err := json.Marshal(template.Splits)
	if err != nil {
		return errors.Wrap(err, "failed to marshal splits")
	}

	query := `
		INSERT INTO recipient_split_templates (id, recipient_id, name, splits, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}

	_, err = p.db.ExecContext(ctx, query,
		template.ID,
		template.RecipientID,
		template.Name,
		splits,
		template.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create split template")
	}
	return nil
}

// ListSplitTemplates retrieves the split templates of one recipient
func (p *PostgresDB) ListSplitTemplates(ctx context.Context, recipientID string) ([]*models.RecipientSplitTemplate, error) {
	query := `
		SELECT id, recipient_id, name, splits, created_at
		FROM recipient_split_templates
		WHERE recipient_id = $1
		ORDER BY created_at
	`

	rows, err := p.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query split templates")
	}
	defer rows.Close()

	var templates []*models.RecipientSplitTemplate
	for rows.Next() {
		var (
			t      models.RecipientSplitTemplate
			splits []byte
		)
		if err := rows.Scan(&t.ID, &t.RecipientID, &t.Name, &splits, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan split template")
		}
		if err := json.Unmarshal(splits, &t.Splits); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal splits")
		}
		templates = append(templates, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating split templates")
	}
	return templates, nil
}

// CreateIntent inserts a new escrow intent
func (p *PostgresDB) CreateIntent(ctx context.Context, intent *models.EscrowIntent) error {
	return createIntentTx(ctx, p.db, intent)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func createIntentTx(ctx context.Context, ex execer, intent *models.EscrowIntent) error {
	splits, err := json.Marshal(intent.Splits)
	if err != nil {
		return errors.Wrap(err, "failed to marshal splits")
	}

	query := `
		INSERT INTO escrow_intents (
			id, onchain_intent_id, creation_tx_hash, chain_id, recipient_id,
			entity_type, funding_asset, payout_asset, amount, release_condition,
			deadline_days, acceptance_days, yield_enabled, protection_enabled,
			splits, milestone_template, notes, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`

	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	if intent.UpdatedAt.IsZero() {
		intent.UpdatedAt = time.Now()
	}

	_, err = ex.ExecContext(ctx, query,
		intent.ID,
		intent.OnchainIntentID,
		intent.CreationTxHash,
		intent.ChainID,
		intent.RecipientID,
		intent.EntityType,
		intent.FundingAsset,
		intent.PayoutAsset,
		intent.Amount,
		intent.ReleaseCondition,
		intent.DeadlineDays,
		intent.AcceptanceDays,
		intent.YieldEnabled,
		intent.ProtectionEnabled,
		splits,
		intent.MilestoneTemplate,
		intent.Notes,
		intent.Status,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create intent")
	}
	return nil
}

const intentColumns = `
	id, onchain_intent_id, creation_tx_hash, chain_id, recipient_id,
	entity_type, funding_asset, payout_asset, amount, release_condition,
	deadline_days, acceptance_days, yield_enabled, protection_enabled,
	splits, milestone_template, notes, status, created_at, updated_at
`

func scanIntent(row interface {
	Scan(dest ...interface{}) error
}) (*models.EscrowIntent, error) {
	var (
		intent models.EscrowIntent
		splits []byte
	)
	err := row.Scan(
		&intent.ID,
		&intent.OnchainIntentID,
		&intent.CreationTxHash,
		&intent.ChainID,
		&intent.RecipientID,
		&intent.EntityType,
		&intent.FundingAsset,
		&intent.PayoutAsset,
		&intent.Amount,
		&intent.ReleaseCondition,
		&intent.DeadlineDays,
		&intent.AcceptanceDays,
		&intent.YieldEnabled,
		&intent.ProtectionEnabled,
		&splits,
		&intent.MilestoneTemplate,
		&intent.Notes,
		&intent.Status,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &intent.Splits); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal splits")
		}
	}
	return &intent, nil
}

// GetIntent retrieves an escrow intent by its off-chain ID
func (p *PostgresDB) GetIntent(ctx context.Context, id string) (*models.EscrowIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM escrow_intents WHERE id = $1`

	intent, err := scanIntent(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "intent %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get intent")
	}
	return intent, nil
}

// GetIntentByOnchainID retrieves an escrow intent by its on-chain identity
func (p *PostgresDB) GetIntentByOnchainID(ctx context.Context, chainID uint64, onchainID string) (*models.EscrowIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM escrow_intents WHERE chain_id = $1 AND onchain_intent_id = $2`

	intent, err := scanIntent(p.db.QueryRowContext(ctx, query, chainID, onchainID))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "intent with onchain id %s on chain %d", onchainID, chainID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get intent by onchain id")
	}
	return intent, nil
}

// ListIntents retrieves intents with pagination, optionally filtered by status
func (p *PostgresDB) ListIntents(ctx context.Context, page, pageSize int, status string) ([]*models.EscrowIntent, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	countQuery := `SELECT COUNT(*) FROM escrow_intents WHERE ($1 = '' OR status = $1)`
	if err := p.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count intents")
	}

	query := `SELECT ` + intentColumns + `
		FROM escrow_intents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := p.db.QueryContext(ctx, query, status, pageSize, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query intents")
	}
	defer rows.Close()

	var intents []*models.EscrowIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan intent")
		}
		intents = append(intents, intent)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "error iterating intents")
	}
	return intents, total, nil
}

// ListIntentsByRecipient retrieves all intents for one recipient
func (p *PostgresDB) ListIntentsByRecipient(ctx context.Context, recipientID string) ([]*models.EscrowIntent, error) {
	query := `SELECT ` + intentColumns + `
		FROM escrow_intents
		WHERE recipient_id = $1
		ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query intents by recipient")
	}
	defer rows.Close()

	var intents []*models.EscrowIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan intent")
		}
		intents = append(intents, intent)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating intents")
	}
	return intents, nil
}

// UpdateIntentStatus updates the status of an escrow intent
func (p *PostgresDB) UpdateIntentStatus(ctx context.Context, id string, status models.EscrowStatus) error {
	query := `
		UPDATE escrow_intents
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := p.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.Wrap(err, "failed to update intent status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "intent %s", id)
	}
	return nil
}

// LinkIntent assigns the on-chain identity to an intent. The assignment is
// one-time: re-linking with the same values is a no-op, re-linking with
// different values returns ErrAlreadyLinked.
func (p *PostgresDB) LinkIntent(ctx context.Context, id, onchainID, txHash string) error {
	query := `
		UPDATE escrow_intents
		SET onchain_intent_id = $2, creation_tx_hash = $3, updated_at = NOW()
		WHERE id = $1 AND onchain_intent_id IS NULL
	`

	result, err := p.db.ExecContext(ctx, query, id, onchainID, txHash)
	if err != nil {
		return errors.Wrap(err, "failed to link intent")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected > 0 {
		return nil
	}

	intent, err := p.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	if intent.OnchainIntentID != nil && *intent.OnchainIntentID == onchainID {
		// Idempotent replay of the same link.
		return nil
	}
	return errors.Wrapf(ErrAlreadyLinked, "intent %s", id)
}

// SumLockedByAsset sums the base-unit amounts of all intents currently
// holding funds on a chain, grouped by funding asset. FUNDED, SUBMITTED and
// DISPUTED all hold funds; CREATED has not locked yet and terminal states
// have released.
func (p *PostgresDB) SumLockedByAsset(ctx context.Context, chainID uint64) (map[string]string, error) {
	query := `
		SELECT funding_asset, SUM(amount::NUMERIC)::TEXT
		FROM escrow_intents
		WHERE chain_id = $1 AND status IN ('FUNDED', 'SUBMITTED', 'DISPUTED')
		GROUP BY funding_asset
	`

	rows, err := p.db.QueryContext(ctx, query, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sum locked amounts")
	}
	defer rows.Close()

	locked := make(map[string]string)
	for rows.Next() {
		var asset, total string
		if err := rows.Scan(&asset, &total); err != nil {
			return nil, errors.Wrap(err, "failed to scan locked amount")
		}
		locked[asset] = total
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating locked amounts")
	}
	return locked, nil
}

// CreateJobWithMilestones persists a job, its generated intents and its
// milestone rows in a single transaction. Either everything commits or
// nothing does.
func (p *PostgresDB) CreateJobWithMilestones(ctx context.Context, job *models.EscrowJob, intents []*models.EscrowIntent) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}

	jobQuery := `
		INSERT INTO escrow_jobs (
			id, title, description, tags, recipient_id, total_amount,
			funding_asset, payout_asset, release_condition, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, jobQuery,
		job.ID,
		job.Title,
		job.Description,
		pq.Array(job.Tags),
		job.RecipientID,
		job.TotalAmount,
		job.FundingAsset,
		job.PayoutAsset,
		job.ReleaseCondition,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create job")
	}

	for _, intent := range intents {
		if err := createIntentTx(ctx, tx, intent); err != nil {
			return err
		}
	}

	milestoneQuery := `
		INSERT INTO escrow_job_milestones (
			id, job_id, intent_id, position, title, percentage, amount, due_days, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range job.Milestones {
		m := &job.Milestones[i]
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx, milestoneQuery,
			m.ID,
			m.JobID,
			m.IntentID,
			m.Position,
			m.Title,
			m.Percentage,
			m.Amount,
			m.DueDays,
			m.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to create milestone")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit job transaction")
	}
	return nil
}

// GetJob retrieves a job and its milestones
func (p *PostgresDB) GetJob(ctx context.Context, id string) (*models.EscrowJob, error) {
	query := `
		SELECT id, title, description, tags, recipient_id, total_amount,
		       funding_asset, payout_asset, release_condition, created_at, updated_at
		FROM escrow_jobs
		WHERE id = $1
	`

	var job models.EscrowJob
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.Title,
		&job.Description,
		pq.Array(&job.Tags),
		&job.RecipientID,
		&job.TotalAmount,
		&job.FundingAsset,
		&job.PayoutAsset,
		&job.ReleaseCondition,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get job")
	}

	milestoneQuery := `
		SELECT id, job_id, intent_id, position, title, percentage, amount, due_days, created_at
		FROM escrow_job_milestones
		WHERE job_id = $1
		ORDER BY position
	`
	rows, err := p.db.QueryContext(ctx, milestoneQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query milestones")
	}
	defer rows.Close()

	for rows.Next() {
		var m models.EscrowJobMilestone
		err := rows.Scan(&m.ID, &m.JobID, &m.IntentID, &m.Position, &m.Title,
			&m.Percentage, &m.Amount, &m.DueDays, &m.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan milestone")
		}
		job.Milestones = append(job.Milestones, m)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating milestones")
	}

	return &job, nil
}

// ListJobs retrieves all jobs without their milestones
func (p *PostgresDB) ListJobs(ctx context.Context) ([]*models.EscrowJob, error) {
	query := `
		SELECT id, title, description, tags, recipient_id, total_amount,
		       funding_asset, payout_asset, release_condition, created_at, updated_at
		FROM escrow_jobs
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query jobs")
	}
	defer rows.Close()

	var jobs []*models.EscrowJob
	for rows.Next() {
		var job models.EscrowJob
		err := rows.Scan(
			&job.ID,
			&job.Title,
			&job.Description,
			pq.Array(&job.Tags),
			&job.RecipientID,
			&job.TotalAmount,
			&job.FundingAsset,
			&job.PayoutAsset,
			&job.ReleaseCondition,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return jobs, nil
}

// InsertChainEvent records one observed contract log. Returns false when the
// (tx_hash, log_index) pair was already recorded; the duplicate is silently
// skipped.
func (p *PostgresDB) InsertChainEvent(ctx context.Context, event *models.ChainEvent) (bool, error) {
	query := `
		INSERT INTO chain_events (
			chain_id, source, contract_address, event_name, tx_hash,
			block_number, log_index, onchain_intent_id, asset, amount,
			payload, block_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`

	result, err := p.db.ExecContext(ctx, query,
		event.ChainID,
		event.Source,
		event.ContractAddress,
		event.EventName,
		event.TxHash,
		event.BlockNumber,
		event.LogIndex,
		event.OnchainIntentID,
		event.Asset,
		event.Amount,
		event.Payload,
		event.BlockTime,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert chain event")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected > 0, nil
}

// ListChainEvents retrieves the most recent events on a chain, newest first
func (p *PostgresDB) ListChainEvents(ctx context.Context, chainID uint64, limit int) ([]*models.ChainEvent, error) {
	if limit < 1 {
		limit = 50
	}

	query := `
		SELECT id, chain_id, source, contract_address, event_name, tx_hash,
		       block_number, log_index, onchain_intent_id, asset, amount,
		       payload, block_time, created_at
		FROM chain_events
		WHERE chain_id = $1
		ORDER BY block_number DESC, log_index DESC
		LIMIT $2
	`

	rows, err := p.db.QueryContext(ctx, query, chainID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chain events")
	}
	defer rows.Close()

	var events []*models.ChainEvent
	for rows.Next() {
		var e models.ChainEvent
		err := rows.Scan(
			&e.ID,
			&e.ChainID,
			&e.Source,
			&e.ContractAddress,
			&e.EventName,
			&e.TxHash,
			&e.BlockNumber,
			&e.LogIndex,
			&e.OnchainIntentID,
			&e.Asset,
			&e.Amount,
			&e.Payload,
			&e.BlockTime,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chain event")
		}
		events = append(events, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating chain events")
	}
	return events, nil
}

// GetEventCursor gets the last processed block for one synced contract.
// Returns ErrNotFound when no cursor exists yet.
func (p *PostgresDB) GetEventCursor(ctx context.Context, chainID uint64, source models.EventSource) (uint64, error) {
	query := `
		SELECT block_number
		FROM escrow_event_cursors
		WHERE chain_id = $1 AND source = $2
	`

	var blockNumber uint64
	err := p.db.QueryRowContext(ctx, query, chainID, source).Scan(&blockNumber)
	if err == sql.ErrNoRows {
		return 0, errors.Wrapf(ErrNotFound, "cursor for chain %d source %s", chainID, source)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to get event cursor")
	}
	return blockNumber, nil
}

// UpdateEventCursor advances the cursor for one synced contract. The cursor
// is monotonic: an update with a lower block number than the stored one is
// ignored.
func (p *PostgresDB) UpdateEventCursor(ctx context.Context, chainID uint64, source models.EventSource, blockNumber uint64) error {
	query := `
		INSERT INTO escrow_event_cursors (chain_id, source, block_number, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chain_id, source) DO UPDATE
		SET block_number = $3,
			updated_at = NOW()
		WHERE escrow_event_cursors.block_number < $3
	`

	_, err := p.db.ExecContext(ctx, query, chainID, source, blockNumber)
	if err != nil {
		return errors.Wrap(err, "failed to update event cursor")
	}
	return nil
}

// InsertTreasurySnapshots appends breakdown snapshot rows
func (p *PostgresDB) InsertTreasurySnapshots(ctx context.Context, snapshots []*models.TreasurySnapshot) error {
	query := `
		INSERT INTO treasury_snapshots (
			chain_id, asset, idle, escrow_locked, yield_deployed, total, taken_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, s := range snapshots {
		if s.TakenAt.IsZero() {
			s.TakenAt = time.Now()
		}
		_, err := p.db.ExecContext(ctx, query,
			s.ChainID, s.Asset, s.Idle, s.EscrowLocked, s.YieldDeployed, s.Total, s.TakenAt)
		if err != nil {
			return errors.Wrap(err, "failed to insert treasury snapshot")
		}
	}
	return nil
}

// ListTreasurySnapshots retrieves recent snapshot rows for one asset
func (p *PostgresDB) ListTreasurySnapshots(ctx context.Context, chainID uint64, asset string, limit int) ([]*models.TreasurySnapshot, error) {
	if limit < 1 {
		limit = 100
	}

	query := `
		SELECT id, chain_id, asset, idle, escrow_locked, yield_deployed, total, taken_at
		FROM treasury_snapshots
		WHERE chain_id = $1 AND asset = $2
		ORDER BY taken_at DESC
		LIMIT $3
	`

	rows, err := p.db.QueryContext(ctx, query, chainID, asset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query treasury snapshots")
	}
	defer rows.Close()

	var snapshots []*models.TreasurySnapshot
	for rows.Next() {
		var s models.TreasurySnapshot
		err := rows.Scan(&s.ID, &s.ChainID, &s.Asset, &s.Idle, &s.EscrowLocked,
			&s.YieldDeployed, &s.Total, &s.TakenAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan treasury snapshot")
		}
		snapshots = append(snapshots, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating treasury snapshots")
	}
	return snapshots, nil
}

// InitDB initializes the database schema
func (p *PostgresDB) InitDB(ctx context.Context) error {
	schema := `
		-- Recipients and their reusable split configurations
		CREATE TABLE IF NOT EXISTS recipients (
			id VARCHAR(36) PRIMARY KEY,
			name TEXT NOT NULL,
			wallet VARCHAR(42) NOT NULL,
			entity_type VARCHAR(20) NOT NULL,
			payout_mode VARCHAR(20) NOT NULL,
			payout_asset VARCHAR(16) NOT NULL DEFAULT '',
			accounting_ref TEXT NOT NULL DEFAULT '',
			policy_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recipient_split_templates (
			id VARCHAR(36) PRIMARY KEY,
			recipient_id VARCHAR(36) NOT NULL REFERENCES recipients(id),
			name TEXT NOT NULL,
			splits JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		-- Escrow intents
		CREATE TABLE IF NOT EXISTS escrow_intents (
			id VARCHAR(36) PRIMARY KEY,
			onchain_intent_id VARCHAR(66),
			creation_tx_hash VARCHAR(66),
			chain_id BIGINT NOT NULL,
			recipient_id VARCHAR(36) NOT NULL REFERENCES recipients(id),
			entity_type VARCHAR(20) NOT NULL,
			funding_asset VARCHAR(16) NOT NULL,
			payout_asset VARCHAR(16) NOT NULL,
			amount VARCHAR(78) NOT NULL,
			release_condition VARCHAR(20) NOT NULL,
			deadline_days INT NOT NULL,
			acceptance_days INT NOT NULL,
			yield_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			protection_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			splits JSONB,
			milestone_template TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (chain_id, onchain_intent_id)
		);

		-- Jobs and their milestone escrows
		CREATE TABLE IF NOT EXISTS escrow_jobs (
			id VARCHAR(36) PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			recipient_id VARCHAR(36) NOT NULL REFERENCES recipients(id),
			total_amount VARCHAR(78) NOT NULL,
			funding_asset VARCHAR(16) NOT NULL,
			payout_asset VARCHAR(16) NOT NULL,
			release_condition VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS escrow_job_milestones (
			id VARCHAR(36) PRIMARY KEY,
			job_id VARCHAR(36) NOT NULL REFERENCES escrow_jobs(id),
			intent_id VARCHAR(36) NOT NULL REFERENCES escrow_intents(id),
			position INT NOT NULL,
			title TEXT NOT NULL,
			percentage INT NOT NULL,
			amount VARCHAR(78) NOT NULL,
			due_days INT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		-- Observed contract logs, deduplicated on (tx_hash, log_index)
		CREATE TABLE IF NOT EXISTS chain_events (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			source VARCHAR(20) NOT NULL,
			contract_address VARCHAR(42) NOT NULL,
			event_name VARCHAR(40) NOT NULL,
			tx_hash VARCHAR(66) NOT NULL,
			block_number BIGINT NOT NULL,
			log_index INT NOT NULL,
			onchain_intent_id VARCHAR(66),
			asset VARCHAR(42),
			amount VARCHAR(78),
			payload JSONB,
			block_time TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (tx_hash, log_index)
		);

		-- Per-contract sync cursors, advanced only forward
		CREATE TABLE IF NOT EXISTS escrow_event_cursors (
			chain_id BIGINT NOT NULL,
			source VARCHAR(20) NOT NULL,
			block_number BIGINT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chain_id, source)
		);

		-- Append-only breakdown time series
		CREATE TABLE IF NOT EXISTS treasury_snapshots (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			asset VARCHAR(16) NOT NULL,
			idle VARCHAR(78) NOT NULL,
			escrow_locked VARCHAR(78) NOT NULL,
			yield_deployed VARCHAR(78) NOT NULL,
			total VARCHAR(78) NOT NULL,
			taken_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		-- Create indexes
		CREATE INDEX IF NOT EXISTS idx_escrow_intents_status ON escrow_intents(status);
		CREATE INDEX IF NOT EXISTS idx_escrow_intents_recipient ON escrow_intents(recipient_id);
		CREATE INDEX IF NOT EXISTS idx_escrow_intents_chain_status ON escrow_intents(chain_id, status);
		CREATE INDEX IF NOT EXISTS idx_chain_events_chain_block ON chain_events(chain_id, block_number DESC);
		CREATE INDEX IF NOT EXISTS idx_chain_events_intent ON chain_events(onchain_intent_id);
		CREATE INDEX IF NOT EXISTS idx_milestones_job ON escrow_job_milestones(job_id);
		CREATE INDEX IF NOT EXISTS idx_snapshots_chain_asset ON treasury_snapshots(chain_id, asset, taken_at DESC);
	`

	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}
