package services

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tesoro-hq/tesoro/api/clients/evm"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"golang.org/x/sync/errgroup"
)

// BalanceReader is the subset of the contract reader the treasury
// aggregation depends on.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, holder string) (*big.Int, error)
	SharesOf(ctx context.Context, yieldManager, asset string) (*big.Int, error)
	ConvertToAssets(ctx context.Context, yieldManager, asset string, shares *big.Int) (*big.Int, error)
}

var ErrChainNotConfigured = errors.New("chain not configured")

// TreasuryService computes the live treasury breakdown: idle vault balances
// and deployed yield from chain reads, escrow-locked totals from the local
// intent mirror. Per asset, idle + escrow_locked + yield_deployed always
// equals total; when the yield reads fail the yield leg degrades to zero and
// the asset is flagged, instead of failing the whole response.
type TreasuryService struct {
	readers map[uint64]BalanceReader
	db      db.Database
	chains  map[uint64]*config.ChainConfig
	logger  zerolog.Logger
}

// NewTreasuryService creates a new TreasuryService instance
func NewTreasuryService(
	readers map[uint64]BalanceReader,
	database db.Database,
	cfg *config.Config,
	logger zerolog.Logger,
) *TreasuryService {
	return &TreasuryService{
		readers: readers,
		db:      database,
		chains:  cfg.ChainConfigs,
		logger:  logger.With().Str(logging.FieldModule, "treasury_service").Logger(),
	}
}

// Breakdown computes the per-asset decomposition for one chain. Asset legs
// are read concurrently; a failed idle read fails the whole call, a failed
// yield read degrades that asset's yield leg to zero.
func (s *TreasuryService) Breakdown(ctx context.Context, chainID uint64) (*models.TreasuryBreakdown, error) {
	chain, ok := s.chains[chainID]
	if !ok {
		return nil, errors.Wrapf(ErrChainNotConfigured, "chain %d", chainID)
	}
	reader, ok := s.readers[chainID]
	if !ok {
		return nil, errors.Wrapf(ErrChainNotConfigured, "no reader for chain %d", chainID)
	}
	if chain.TreasuryVaultAddr == "" {
		return nil, errors.Errorf("no treasury vault configured for chain %d", chainID)
	}

	locked, err := s.db.SumLockedByAsset(ctx, chainID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(chain.Assets))
	for symbol := range chain.Assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var (
		mu          sync.Mutex
		byAsset     = make(map[string]models.AssetBreakdown, len(symbols))
		group, gctx = errgroup.WithContext(ctx)
	)

	for _, symbol := range symbols {
		asset := chain.Assets[symbol]
		group.Go(func() error {
			idle, err := reader.BalanceOf(gctx, asset.Address, chain.TreasuryVaultAddr)
			if err != nil {
				return errors.Wrapf(err, "idle balance for %s", symbol)
			}

			deployed, degraded := s.yieldDeployed(gctx, reader, chain, symbol, asset.Address)

			escrowLocked := decimal.Zero
			if raw, ok := locked[symbol]; ok {
				escrowLocked, err = decimal.NewFromString(raw)
				if err != nil {
					return errors.Wrapf(err, "locked total for %s", symbol)
				}
			}

			idleDec := decimal.NewFromBigInt(idle, 0)
			breakdown := models.AssetBreakdown{
				Asset:            symbol,
				Idle:             idleDec,
				EscrowLocked:     escrowLocked,
				YieldDeployed:    deployed,
				Total:            idleDec.Add(escrowLocked).Add(deployed),
				YieldUnavailable: degraded,
			}

			mu.Lock()
			byAsset[symbol] = breakdown
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := &models.TreasuryBreakdown{
		ChainID:    chainID,
		Assets:     make([]models.AssetBreakdown, 0, len(symbols)),
		GrandTotal: decimal.Zero,
		ComputedAt: time.Now().UTC(),
	}
	for _, symbol := range symbols {
		breakdown := byAsset[symbol]
		result.Assets = append(result.Assets, breakdown)
		result.GrandTotal = result.GrandTotal.Add(breakdown.Total)
	}

	return result, nil
}

// yieldDeployed reads the yield leg for one asset. Any failure degrades to
// zero with the degraded flag set; yield being temporarily unreadable must
// not take down the breakdown.
func (s *TreasuryService) yieldDeployed(
	ctx context.Context,
	reader BalanceReader,
	chain *config.ChainConfig,
	symbol, assetAddr string,
) (decimal.Decimal, bool) {
	if chain.YieldManagerAddr == "" {
		return decimal.Zero, false
	}

	shares, err := reader.SharesOf(ctx, chain.YieldManagerAddr, assetAddr)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str(logging.FieldAsset, symbol).
			Str("error_kind", evm.Classify(err).String()).
			Msg("Yield shares read failed, degrading to zero")
		return decimal.Zero, true
	}
	if shares.Sign() == 0 {
		return decimal.Zero, false
	}

	deployed, err := reader.ConvertToAssets(ctx, chain.YieldManagerAddr, assetAddr, shares)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str(logging.FieldAsset, symbol).
			Str("error_kind", evm.Classify(err).String()).
			Msg("Yield conversion failed, degrading to zero")
		return decimal.Zero, true
	}

	return decimal.NewFromBigInt(deployed, 0), false
}

// Snapshot persists the current breakdown as append-only time series rows,
// one per asset plus a combined grand-total row.
func (s *TreasuryService) Snapshot(ctx context.Context, chainID uint64) (*models.TreasuryBreakdown, error) {
	breakdown, err := s.Breakdown(ctx, chainID)
	if err != nil {
		return nil, err
	}

	takenAt := breakdown.ComputedAt
	snapshots := make([]*models.TreasurySnapshot, 0, len(breakdown.Assets)+1)
	for _, asset := range breakdown.Assets {
		snapshots = append(snapshots, &models.TreasurySnapshot{
			ChainID:       chainID,
			Asset:         asset.Asset,
			Idle:          asset.Idle.String(),
			EscrowLocked:  asset.EscrowLocked.String(),
			YieldDeployed: asset.YieldDeployed.String(),
			Total:         asset.Total.String(),
			TakenAt:       takenAt,
		})
	}
	snapshots = append(snapshots, &models.TreasurySnapshot{
		ChainID:       chainID,
		Asset:         models.SnapshotAssetCombined,
		Idle:          "0",
		EscrowLocked:  "0",
		YieldDeployed: "0",
		Total:         breakdown.GrandTotal.String(),
		TakenAt:       takenAt,
	})

	if err := s.db.InsertTreasurySnapshots(ctx, snapshots); err != nil {
		return nil, err
	}

	return breakdown, nil
}

// StartSnapshotting runs the append-only time series: every interval, one
// snapshot per chain that has both a reader and a vault configured. A failed
// chain is logged and skipped; the next tick retries it.
func (s *TreasuryService) StartSnapshotting(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", interval).Msg("Started treasury snapshotter")

		for {
			select {
			case <-ticker.C:
				for chainID, chain := range s.chains {
					if _, ok := s.readers[chainID]; !ok || chain.TreasuryVaultAddr == "" {
						continue
					}
					if _, err := s.Snapshot(ctx, chainID); err != nil {
						s.logger.Error().Err(err).
							Uint64(logging.FieldChain, chainID).
							Msg("Failed to snapshot treasury breakdown")
					}
				}
			case <-ctx.Done():
				s.logger.Info().Msg("Stopped treasury snapshotter")
				return
			}
		}
	}()
}

// ActivityFeed returns the most recent observed events on a chain.
func (s *TreasuryService) ActivityFeed(ctx context.Context, chainID uint64, limit int) ([]*models.ChainEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListChainEvents(ctx, chainID, limit)
}

// History returns recent snapshot rows for one asset.
func (s *TreasuryService) History(ctx context.Context, chainID uint64, asset string, limit int) ([]*models.TreasurySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	return s.db.ListTreasurySnapshots(ctx, chainID, asset, limit)
}
