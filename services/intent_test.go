package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/registry"
)

func intentTestRegistry() *registry.Registry {
	return registry.New(&config.Config{
		ChainConfigs: map[uint64]*config.ChainConfig{
			8453: {
				ChainID:    8453,
				EscrowAddr: "0x1111111111111111111111111111111111111111",
				Assets: map[string]config.AssetConfig{
					"IDRX": {Address: idrxAddr, Decimals: 2},
					"USDC": {Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
				},
				Routes: config.RoutePolicy{RFQAllowed: true, FallbackAllowed: true},
				PairOverrides: map[string]config.RoutePolicy{
					"USDC/IDRX": {RFQAllowed: false, FallbackAllowed: false},
				},
			},
		},
	})
}

func companyRecipient() *models.Recipient {
	return &models.Recipient{
		ID:         "rec-1",
		Name:       "PT Nusantara Kreatif",
		Wallet:     "0x2222222222222222222222222222222222222222",
		EntityType: models.EntityCompany,
		PayoutMode: models.PayoutSinglePayee,
	}
}

func TestPrepareCreationSwapFreeSameAsset(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	mockDB.On("GetRecipient", mock.Anything, "rec-1").Return(companyRecipient(), nil)

	var created *models.EscrowIntent
	mockDB.On("CreateIntent", mock.Anything, mock.AnythingOfType("*models.EscrowIntent")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*models.EscrowIntent)
		}).
		Return(nil)

	payload, err := svc.PrepareCreation(context.Background(), &models.CreateIntentRequest{
		ChainID:      8453,
		RecipientID:  "rec-1",
		FundingAsset: "IDRX",
		PayoutAsset:  "IDRX",
		Amount:       "45.000.000",
	})
	require.NoError(t, err)

	// Indonesian-style grouping parses as forty-five million rupiah, and
	// funding == payout means no swap is planned.
	assert.Equal(t, "4500000000", payload.Intent.Amount)
	assert.False(t, payload.Route.SwapRequired)
	assert.Equal(t, models.EscrowStatusCreated, payload.Intent.Status)
	assert.Equal(t, models.ReleaseOnApproval, payload.Intent.ReleaseCondition)
	assert.Equal(t, 7, payload.Intent.AcceptanceDays)
	assert.Equal(t, DefaultDeadlineDays, payload.Intent.DeadlineDays)
	require.NotNil(t, created)
	assert.Equal(t, created.ID, payload.Intent.ID)

	// On-chain call tuple carries the resolved addresses and absolute
	// epoch-second windows.
	assert.Equal(t, "0x1111111111111111111111111111111111111111", payload.Onchain.EscrowAddress)
	assert.Equal(t, idrxAddr, payload.Onchain.FundingToken)
	assert.Equal(t, "4500000000", payload.Onchain.Amount)
	assert.Greater(t, payload.Onchain.Deadline, payload.Onchain.AcceptanceUntil)
	assert.Equal(t, int(registry.RouteAllowFallback), payload.Onchain.RoutePreference)
}

func TestPrepareCreationNoRouteFailsBeforeAnyWrite(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	mockDB.On("GetRecipient", mock.Anything, "rec-1").Return(companyRecipient(), nil)

	_, err := svc.PrepareCreation(context.Background(), &models.CreateIntentRequest{
		ChainID:      8453,
		RecipientID:  "rec-1",
		FundingAsset: "USDC",
		PayoutAsset:  "IDRX",
		Amount:       "100",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNoRouteAvailable))

	mockDB.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestPrepareCreationSplitsRequiredForAgency(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	agency := companyRecipient()
	agency.EntityType = models.EntityAgency
	agency.PayoutMode = models.PayoutMultiPayee
	mockDB.On("GetRecipient", mock.Anything, "rec-1").Return(agency, nil)

	_, err := svc.PrepareCreation(context.Background(), &models.CreateIntentRequest{
		ChainID:      8453,
		RecipientID:  "rec-1",
		FundingAsset: "IDRX",
		PayoutAsset:  "IDRX",
		Amount:       "1000",
	})
	assert.True(t, errors.Is(err, ErrSplitsRequired))
	mockDB.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestPrepareCreationRejectsBadSplits(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	mockDB.On("GetRecipient", mock.Anything, "rec-1").Return(companyRecipient(), nil)

	_, err := svc.PrepareCreation(context.Background(), &models.CreateIntentRequest{
		ChainID:      8453,
		RecipientID:  "rec-1",
		FundingAsset: "IDRX",
		PayoutAsset:  "IDRX",
		Amount:       "1000",
		Splits: []models.Split{
			{Recipient: "0x2222222222222222222222222222222222222222", Bps: 6000},
			{Recipient: "0x5555555555555555555555555555555555555555", Bps: 3800},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "splits sum to 9800")
}

func TestLinkConfirmation(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	onchainID := testOnchainID
	txHash := "0x00000000000000000000000000000000000000000000000000000000000000bb"

	mockDB.On("LinkIntent", mock.Anything, "intent-1", onchainID, txHash).Return(nil)
	mockDB.On("GetIntent", mock.Anything, "intent-1").
		Return(&models.EscrowIntent{ID: "intent-1", OnchainIntentID: &onchainID}, nil)

	intent, err := svc.LinkConfirmation(context.Background(), "intent-1", &models.LinkIntentRequest{
		OnchainIntentID: onchainID,
		CreationTxHash:  txHash,
	})
	require.NoError(t, err)
	require.NotNil(t, intent.OnchainIntentID)
	assert.Equal(t, onchainID, *intent.OnchainIntentID)
}

func TestLinkConfirmationRejectsMalformedID(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	_, err := svc.LinkConfirmation(context.Background(), "intent-1", &models.LinkIntentRequest{
		OnchainIntentID: "0x1234",
		CreationTxHash:  testOnchainID,
	})
	assert.True(t, errors.Is(err, ErrInvalidOnchainID))
	mockDB.AssertNotCalled(t, "LinkIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPrepareDefaults(t *testing.T) {
	mockDB := new(db.MockDB)
	svc := NewIntentService(mockDB, intentTestRegistry(), zerolog.Nop())

	freelancer := companyRecipient()
	freelancer.EntityType = models.EntityFreelancer
	mockDB.On("GetRecipient", mock.Anything, "rec-1").Return(freelancer, nil)

	defaults, err := svc.PrepareDefaults(context.Background(), "rec-1")
	require.NoError(t, err)

	assert.True(t, defaults.EscrowRequired)
	assert.False(t, defaults.SplitsRequired)
	assert.Equal(t, models.ReleaseOnDelivery, defaults.ReleaseCondition)
	assert.Equal(t, 7, defaults.AcceptanceDays)
}
