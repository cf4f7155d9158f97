package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/models"
)

const (
	idrxAddr  = "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22"
	vaultAddr = "0x3333333333333333333333333333333333333333"
	yieldAddr = "0x4444444444444444444444444444444444444444"
)

type fakeReader struct {
	balances  map[string]*big.Int
	shares    map[string]*big.Int
	sharesErr error
	convErr   error
}

func (f *fakeReader) BalanceOf(ctx context.Context, token, holder string) (*big.Int, error) {
	if bal, ok := f.balances[token]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) SharesOf(ctx context.Context, yieldManager, asset string) (*big.Int, error) {
	if f.sharesErr != nil {
		return nil, f.sharesErr
	}
	if s, ok := f.shares[asset]; ok {
		return s, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) ConvertToAssets(ctx context.Context, yieldManager, asset string, shares *big.Int) (*big.Int, error) {
	if f.convErr != nil {
		return nil, f.convErr
	}
	// 1:1 exchange rate keeps the arithmetic visible in assertions.
	return new(big.Int).Set(shares), nil
}

func treasuryTestConfig() *config.Config {
	return &config.Config{
		ChainConfigs: map[uint64]*config.ChainConfig{
			8453: {
				ChainID:           8453,
				TreasuryVaultAddr: vaultAddr,
				YieldManagerAddr:  yieldAddr,
				Assets: map[string]config.AssetConfig{
					"IDRX": {Address: idrxAddr, Decimals: 2},
				},
			},
		},
	}
}

func TestBreakdownInvariant(t *testing.T) {
	mockDB := new(db.MockDB)
	reader := &fakeReader{
		balances: map[string]*big.Int{idrxAddr: big.NewInt(100)},
		shares:   map[string]*big.Int{idrxAddr: big.NewInt(25)},
	}
	svc := NewTreasuryService(map[uint64]BalanceReader{8453: reader}, mockDB, treasuryTestConfig(), zerolog.Nop())

	mockDB.On("SumLockedByAsset", mock.Anything, uint64(8453)).
		Return(map[string]string{"IDRX": "40"}, nil)

	breakdown, err := svc.Breakdown(context.Background(), 8453)
	require.NoError(t, err)
	require.Len(t, breakdown.Assets, 1)

	idrx := breakdown.Assets[0]
	assert.Equal(t, "IDRX", idrx.Asset)
	assert.Equal(t, "100", idrx.Idle.String())
	assert.Equal(t, "40", idrx.EscrowLocked.String())
	assert.Equal(t, "25", idrx.YieldDeployed.String())
	assert.Equal(t, "165", idrx.Total.String())
	assert.False(t, idrx.YieldUnavailable)

	// idle + escrow_locked + yield_deployed == total
	assert.True(t, idrx.Idle.Add(idrx.EscrowLocked).Add(idrx.YieldDeployed).Equal(idrx.Total))
	assert.Equal(t, "165", breakdown.GrandTotal.String())
}

func TestBreakdownYieldDegradesToZero(t *testing.T) {
	mockDB := new(db.MockDB)
	reader := &fakeReader{
		balances:  map[string]*big.Int{idrxAddr: big.NewInt(100)},
		sharesErr: errors.New("execution timeout"),
	}
	svc := NewTreasuryService(map[uint64]BalanceReader{8453: reader}, mockDB, treasuryTestConfig(), zerolog.Nop())

	mockDB.On("SumLockedByAsset", mock.Anything, uint64(8453)).
		Return(map[string]string{"IDRX": "40"}, nil)

	breakdown, err := svc.Breakdown(context.Background(), 8453)
	require.NoError(t, err)
	require.Len(t, breakdown.Assets, 1)

	idrx := breakdown.Assets[0]
	assert.Equal(t, "0", idrx.YieldDeployed.String())
	assert.Equal(t, "140", idrx.Total.String())
	assert.True(t, idrx.YieldUnavailable)
}

func TestBreakdownNoYieldManagerConfigured(t *testing.T) {
	mockDB := new(db.MockDB)
	reader := &fakeReader{
		balances: map[string]*big.Int{idrxAddr: big.NewInt(100)},
	}
	cfg := treasuryTestConfig()
	cfg.ChainConfigs[8453].YieldManagerAddr = ""
	svc := NewTreasuryService(map[uint64]BalanceReader{8453: reader}, mockDB, cfg, zerolog.Nop())

	mockDB.On("SumLockedByAsset", mock.Anything, uint64(8453)).
		Return(map[string]string{}, nil)

	breakdown, err := svc.Breakdown(context.Background(), 8453)
	require.NoError(t, err)

	idrx := breakdown.Assets[0]
	assert.Equal(t, "0", idrx.YieldDeployed.String())
	assert.False(t, idrx.YieldUnavailable)
	assert.Equal(t, "100", idrx.Total.String())
}

func TestBreakdownUnknownChain(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewTreasuryService(map[uint64]BalanceReader{}, mockDB, treasuryTestConfig(), zerolog.Nop())

	_, err := svc.Breakdown(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrChainNotConfigured))
}

func TestSnapshotWritesPerAssetAndCombinedRows(t *testing.T) {
	mockDB := new(db.MockDB)
	reader := &fakeReader{
		balances: map[string]*big.Int{idrxAddr: big.NewInt(100)},
		shares:   map[string]*big.Int{idrxAddr: big.NewInt(25)},
	}
	svc := NewTreasuryService(map[uint64]BalanceReader{8453: reader}, mockDB, treasuryTestConfig(), zerolog.Nop())

	mockDB.On("SumLockedByAsset", mock.Anything, uint64(8453)).
		Return(map[string]string{"IDRX": "40"}, nil)

	var saved []*models.TreasurySnapshot
	mockDB.On("InsertTreasurySnapshots", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).([]*models.TreasurySnapshot)
		}).
		Return(nil)

	_, err := svc.Snapshot(context.Background(), 8453)
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.Equal(t, "IDRX", saved[0].Asset)
	assert.Equal(t, "165", saved[0].Total)
	assert.Equal(t, models.SnapshotAssetCombined, saved[1].Asset)
	assert.Equal(t, "165", saved[1].Total)
}
