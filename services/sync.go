package services

import (
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/clients/evm"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
)

const escrowEventsABI = `[
	{
		"name": "IntentCreated",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true},
			{"name": "fundingAsset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "IntentFunded",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true},
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "WorkSubmitted",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true}
		]
	},
	{
		"name": "IntentDisputed",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true},
			{"name": "challenger", "type": "address", "indexed": true}
		]
	},
	{
		"name": "IntentReleased",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true},
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "IntentRefunded",
		"type": "event",
		"inputs": [
			{"name": "intentId", "type": "bytes32", "indexed": true},
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

const yieldEventsABI = `[
	{
		"name": "YieldDeposited",
		"type": "event",
		"inputs": [
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false},
			{"name": "shares", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "YieldWithdrawn",
		"type": "event",
		"inputs": [
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false},
			{"name": "shares", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "Rebalanced",
		"type": "event",
		"inputs": [
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

const vaultEventsABI = `[
	{
		"name": "Deposit",
		"type": "event",
		"inputs": [
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "from", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "Withdraw",
		"type": "event",
		"inputs": [
			{"name": "asset", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

// FilterClient is the subset of ethclient.Client the sync loop depends on.
type FilterClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// SyncMetrics is a snapshot of one sync service's counters.
type SyncMetrics struct {
	ChainID          uint64             `json:"chain_id"`
	Source           models.EventSource `json:"source"`
	EventsProcessed  int64              `json:"events_processed"`
	EventsSkipped    int64              `json:"events_skipped"`
	ProcessingErrors int64              `json:"processing_errors"`
	LastSyncedBlock  uint64             `json:"last_synced_block"`
	LastRunTime      time.Time          `json:"last_run_time"`
	InFlight         bool               `json:"in_flight"`
}

// SyncService reconciles one contract's logs on one chain into the local
// database. It is the single authoritative writer of intent status: every
// transition beyond CREATED flows through applyEscrowEvent and nowhere else.
//
// Each pass reads the cursor, fetches logs in bounded chunks, applies them
// in (block_number, log_index) order, and advances the cursor only after
// every log in the window was durably recorded. A crash mid-pass therefore
// replays the window: the (tx_hash, log_index) dedup keeps the event rows
// unique and the lifecycle graph makes re-applied transitions no-ops.
type SyncService struct {
	client   FilterClient
	db       db.Database
	chainID  uint64
	source   models.EventSource
	contract common.Address
	eventABI abi.ABI

	maxBlockRange uint64
	lookback      uint64
	interval      time.Duration

	logger zerolog.Logger

	// Single-flight guard: a tick is skipped while the previous pass runs.
	inFlight int32

	eventsProcessed  int64
	eventsSkipped    int64
	processingErrors int64
	lastSyncedBlock  uint64
	lastRunUnix      int64

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	goroutineWg   sync.WaitGroup
	isShutdown    bool
	shutdownMu    sync.RWMutex
}

// NewSyncService creates a sync service for one contract on one chain. The
// contract address and event ABI are selected by source.
func NewSyncService(
	client FilterClient,
	database db.Database,
	chain *config.ChainConfig,
	source models.EventSource,
	lookback uint64,
	interval time.Duration,
	logger zerolog.Logger,
) (*SyncService, error) {
	var (
		address string
		abiJSON string
	)
	switch source {
	case models.SourceEscrow:
		address, abiJSON = chain.EscrowAddr, escrowEventsABI
	case models.SourceYieldManager:
		address, abiJSON = chain.YieldManagerAddr, yieldEventsABI
	case models.SourceTreasuryVault:
		address, abiJSON = chain.TreasuryVaultAddr, vaultEventsABI
	default:
		return nil, errors.Errorf("unknown event source %q", source)
	}
	if address == "" {
		return nil, errors.Errorf("no %s contract configured for chain %d", source, chain.ChainID)
	}

	parsedABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse event ABI")
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())

	return &SyncService{
		client:        client,
		db:            database,
		chainID:       chain.ChainID,
		source:        source,
		contract:      common.HexToAddress(address),
		eventABI:      parsedABI,
		maxBlockRange: chain.MaxBlockRange,
		lookback:      lookback,
		interval:      interval,
		logger: logger.With().
			Uint64(logging.FieldChain, chain.ChainID).
			Str(logging.FieldSource, string(source)).
			Str(logging.FieldModule, "sync_service").
			Logger(),
		cleanupCtx:    cleanupCtx,
		cleanupCancel: cleanupCancel,
	}, nil
}

// Start runs the polling loop until the context is cancelled or Shutdown is
// called. Ticks that arrive while a pass is still running are skipped, so at
// most one pass per contract is ever in flight.
func (s *SyncService) Start(ctx context.Context) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		return
	}
	s.goroutineWg.Add(1)
	s.shutdownMu.RUnlock()

	go func() {
		defer s.goroutineWg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info().
			Dur("interval", s.interval).
			Str("contract", s.contract.Hex()).
			Msg("Started sync loop")

		// Run an initial pass immediately instead of waiting a full tick.
		s.runGuarded(ctx)

		for {
			select {
			case <-ticker.C:
				s.runGuarded(ctx)
			case <-ctx.Done():
				s.logger.Info().Msg("Sync loop stopped: context cancelled")
				return
			case <-s.cleanupCtx.Done():
				s.logger.Info().Msg("Sync loop stopped: shutdown")
				return
			}
		}
	}()
}

func (s *SyncService) runGuarded(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.inFlight, 0, 1) {
		s.logger.Debug().Msg("Previous sync pass still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.inFlight, 0)

	if err := s.RunOnce(ctx); err != nil {
		atomic.AddInt64(&s.processingErrors, 1)
		s.logger.Error().
			Err(err).
			Str("error_kind", evm.Classify(err).String()).
			Msg("Sync pass failed")
	}
}

// RunOnce executes a single reconciliation pass.
func (s *SyncService) RunOnce(ctx context.Context) error {
	atomic.StoreInt64(&s.lastRunUnix, time.Now().Unix())

	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get latest block")
	}

	from, err := s.startBlock(ctx, latest)
	if err != nil {
		return err
	}
	if from > latest {
		return nil
	}

	logs, err := s.fetchLogs(ctx, from, latest)
	if err != nil {
		return err
	}

	if len(logs) > 0 {
		// Apply strictly in chain order, never in provider return order.
		sort.Slice(logs, func(i, j int) bool {
			if logs[i].BlockNumber != logs[j].BlockNumber {
				return logs[i].BlockNumber < logs[j].BlockNumber
			}
			return logs[i].Index < logs[j].Index
		})

		blockTimes, err := s.fetchBlockTimes(ctx, logs)
		if err != nil {
			return err
		}

		for _, vLog := range logs {
			if err := s.processLog(ctx, vLog, blockTimes[vLog.BlockNumber]); err != nil {
				// Stop without advancing the cursor; the next pass
				// replays this window.
				return err
			}
		}
	}

	// Advance only after every log above was durably recorded.
	if err := s.db.UpdateEventCursor(ctx, s.chainID, s.source, latest); err != nil {
		return err
	}
	atomic.StoreUint64(&s.lastSyncedBlock, latest)

	if len(logs) > 0 {
		s.logger.Info().
			Uint64("from_block", from).
			Uint64(logging.FieldBlock, latest).
			Int("logs", len(logs)).
			Msg("Sync pass complete")
	}

	return nil
}

// startBlock resolves where this pass starts. With no cursor the window is
// bounded by the configured lookback rather than starting from genesis.
func (s *SyncService) startBlock(ctx context.Context, latest uint64) (uint64, error) {
	cursor, err := s.db.GetEventCursor(ctx, s.chainID, s.source)
	if errors.Is(err, db.ErrNotFound) {
		if latest > s.lookback {
			return latest - s.lookback, nil
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor + 1, nil
}

// fetchLogs collects the window's logs in maxBlockRange chunks.
func (s *SyncService) fetchLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	var all []types.Log

	for start := from; start <= to; start += s.maxBlockRange + 1 {
		end := start + s.maxBlockRange
		if end > to {
			end = to
		}

		query := ethereum.FilterQuery{
			Addresses: []common.Address{s.contract},
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
		}

		logs, err := s.client.FilterLogs(ctx, query)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to filter logs %d-%d", start, end)
		}
		all = append(all, logs...)
	}

	return all, nil
}

// fetchBlockTimes resolves the timestamp of every distinct block in the log
// set with one header fetch per block.
func (s *SyncService) fetchBlockTimes(ctx context.Context, logs []types.Log) (map[uint64]time.Time, error) {
	times := make(map[uint64]time.Time)
	for _, vLog := range logs {
		if _, ok := times[vLog.BlockNumber]; ok {
			continue
		}
		header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(vLog.BlockNumber))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get header for block %d", vLog.BlockNumber)
		}
		times[vLog.BlockNumber] = time.Unix(int64(header.Time), 0).UTC()
	}
	return times, nil
}

// processLog records one log and, for escrow events, applies the status
// transition it implies.
func (s *SyncService) processLog(ctx context.Context, vLog types.Log, blockTime time.Time) error {
	event, err := s.decodeLog(vLog, blockTime)
	if err != nil {
		return err
	}
	if event == nil {
		// Log from an event signature we do not track.
		return nil
	}

	inserted, err := s.db.InsertChainEvent(ctx, event)
	if err != nil {
		return err
	}
	if inserted {
		atomic.AddInt64(&s.eventsProcessed, 1)
	} else {
		atomic.AddInt64(&s.eventsSkipped, 1)
		s.logger.Debug().
			Str(logging.FieldTxHash, event.TxHash).
			Uint("log_index", event.LogIndex).
			Msg("Duplicate event, re-applying transition")
	}

	// The transition runs on duplicates too: a pass can fail between the
	// event insert and the status write, and the replay has to finish the
	// status write. NextStatus makes a second application a no-op.
	if s.source == models.SourceEscrow {
		return s.applyEscrowEvent(ctx, event)
	}
	return nil
}

// decodeLog maps a raw log to a ChainEvent. Unknown event signatures return
// (nil, nil) and are skipped.
func (s *SyncService) decodeLog(vLog types.Log, blockTime time.Time) (*models.ChainEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, nil
	}

	eventDef, err := s.eventABI.EventByID(vLog.Topics[0])
	if err != nil {
		return nil, nil
	}

	event := &models.ChainEvent{
		ChainID:         s.chainID,
		Source:          s.source,
		ContractAddress: vLog.Address.Hex(),
		EventName:       eventDef.Name,
		TxHash:          vLog.TxHash.Hex(),
		BlockNumber:     vLog.BlockNumber,
		LogIndex:        vLog.Index,
		BlockTime:       blockTime,
	}

	topicIdx := 1
	for _, input := range eventDef.Inputs {
		if !input.Indexed {
			continue
		}
		if topicIdx >= len(vLog.Topics) {
			return nil, errors.Errorf("log for %s has %d topics, expected more", eventDef.Name, len(vLog.Topics))
		}
		switch {
		case input.Type.T == abi.FixedBytesTy && input.Name == "intentId":
			id := vLog.Topics[topicIdx].Hex()
			event.OnchainIntentID = &id
		case input.Type.T == abi.AddressTy && (input.Name == "asset" || input.Name == "fundingAsset"):
			addr := common.BytesToAddress(vLog.Topics[topicIdx].Bytes()).Hex()
			event.Asset = &addr
		}
		topicIdx++
	}

	if len(vLog.Data) > 0 {
		values := make(map[string]interface{})
		if err := s.eventABI.UnpackIntoMap(values, eventDef.Name, vLog.Data); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack %s data", eventDef.Name)
		}
		if amount, ok := values["amount"].(*big.Int); ok {
			str := amount.String()
			event.Amount = &str
		}
		if payload, err := json.Marshal(values); err == nil {
			event.Payload = payload
		}
	}

	return event, nil
}

// applyEscrowEvent advances the linked intent's status according to the
// lifecycle graph. Events for unlinked or unknown intents are recorded but
// move nothing; transitions the graph rejects are silent no-ops, which makes
// replayed and stale logs harmless.
func (s *SyncService) applyEscrowEvent(ctx context.Context, event *models.ChainEvent) error {
	if event.OnchainIntentID == nil {
		return nil
	}

	intent, err := s.db.GetIntentByOnchainID(ctx, s.chainID, *event.OnchainIntentID)
	if errors.Is(err, db.ErrNotFound) {
		s.logger.Debug().
			Str("onchain_intent_id", *event.OnchainIntentID).
			Str("event", event.EventName).
			Msg("Event for unknown intent, recorded without transition")
		return nil
	}
	if err != nil {
		return err
	}

	next, ok := models.NextStatus(intent.Status, event.EventName)
	if !ok {
		return nil
	}

	if err := s.db.UpdateIntentStatus(ctx, intent.ID, next); err != nil {
		return err
	}

	s.logger.Info().
		Str(logging.FieldIntent, intent.ID).
		Str("from", string(intent.Status)).
		Str("to", string(next)).
		Str(logging.FieldTxHash, event.TxHash).
		Msg("Intent status advanced")

	return nil
}

// GetMetrics returns a snapshot of the service's counters.
func (s *SyncService) GetMetrics() SyncMetrics {
	return SyncMetrics{
		ChainID:          s.chainID,
		Source:           s.source,
		EventsProcessed:  atomic.LoadInt64(&s.eventsProcessed),
		EventsSkipped:    atomic.LoadInt64(&s.eventsSkipped),
		ProcessingErrors: atomic.LoadInt64(&s.processingErrors),
		LastSyncedBlock:  atomic.LoadUint64(&s.lastSyncedBlock),
		LastRunTime:      time.Unix(atomic.LoadInt64(&s.lastRunUnix), 0),
		InFlight:         atomic.LoadInt32(&s.inFlight) == 1,
	}
}

// Shutdown stops the polling loop and waits for in-flight work to finish,
// up to the given timeout.
func (s *SyncService) Shutdown(timeout time.Duration) error {
	s.shutdownMu.Lock()
	if s.isShutdown {
		s.shutdownMu.Unlock()
		return nil
	}
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.cleanupCancel()

	done := make(chan struct{})
	go func() {
		s.goroutineWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Sync service shut down")
		return nil
	case <-time.After(timeout):
		return errors.Errorf("sync service shutdown timed out after %s", timeout)
	}
}
