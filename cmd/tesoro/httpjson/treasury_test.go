package httpjson

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/services"
)

func TestTreasury(t *testing.T) {
	t.Run("Breakdown", func(t *testing.T) {
		t.Parallel()

		mockBreakdown := &models.TreasuryBreakdown{
			ChainID: 8453,
			Assets: []models.AssetBreakdown{
				{
					Asset:         "IDRX",
					Idle:          decimal.NewFromInt(100),
					EscrowLocked:  decimal.NewFromInt(40),
					YieldDeployed: decimal.NewFromInt(25),
					Total:         decimal.NewFromInt(165),
				},
			},
			GrandTotal: decimal.NewFromInt(165),
			ComputedAt: time.Now().UTC(),
		}

		tests := []struct {
			name           string
			queryParams    map[string]string
			expectedStatus int
			setup          func(ts *testSuite)
		}{
			{
				name:           "ValidBreakdown",
				queryParams:    map[string]string{"chain_id": "8453"},
				expectedStatus: http.StatusOK,
				setup: func(ts *testSuite) {
					ts.Treasury.On("Breakdown", mock.Anything, uint64(8453)).Return(mockBreakdown, nil)
				},
			},
			{
				name:           "MissingChainID",
				queryParams:    map[string]string{},
				expectedStatus: http.StatusBadRequest,
			},
			{
				name:           "InvalidChainID",
				queryParams:    map[string]string{"chain_id": "not-a-number"},
				expectedStatus: http.StatusBadRequest,
			},
			{
				name:           "UnknownChain",
				queryParams:    map[string]string{"chain_id": "999"},
				expectedStatus: http.StatusNotFound,
				setup: func(ts *testSuite) {
					ts.Treasury.
						On("Breakdown", mock.Anything, uint64(999)).
						Return(nil, services.ErrChainNotConfigured)
				},
			},
			{
				name:           "ServiceError",
				queryParams:    map[string]string{"chain_id": "8453"},
				expectedStatus: http.StatusInternalServerError,
				setup: func(ts *testSuite) {
					ts.Treasury.On("Breakdown", numOfArgs(2)...).Return(nil, assert.AnError)
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// ARRANGE
				ts := newTestSuite(t)

				if tt.setup != nil {
					tt.setup(ts)
				}

				// ACT
				res, err := ts.Client.Get().
					AddPath("/api/v1/treasury/breakdown").
					SetQueryParams(tt.queryParams).
					Do()

				// ASSERT
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, res.StatusCode, res.String())

				if tt.expectedStatus == http.StatusOK {
					assertResponseContainsJSON(t, res, "assets.0.asset", "IDRX")
					assertResponseContainsJSON(t, res, "grand_total", "165")
				}
			})
		}
	})

	t.Run("Activity", func(t *testing.T) {
		t.Parallel()

		mockEvents := []*models.ChainEvent{
			{TxHash: "0xaaa", LogIndex: 0, ChainID: 8453, EventName: "IntentFunded"},
			{TxHash: "0xbbb", LogIndex: 1, ChainID: 8453, EventName: "IntentReleased"},
		}

		tests := []struct {
			name           string
			queryParams    map[string]string
			expectedStatus int
			setup          func(ts *testSuite)
		}{
			{
				name:           "DefaultLimit",
				queryParams:    map[string]string{"chain_id": "8453"},
				expectedStatus: http.StatusOK,
				setup: func(ts *testSuite) {
					ts.Treasury.On("ActivityFeed", mock.Anything, uint64(8453), 50).Return(mockEvents, nil)
				},
			},
			{
				name:           "ExplicitLimit",
				queryParams:    map[string]string{"chain_id": "8453", "limit": "10"},
				expectedStatus: http.StatusOK,
				setup: func(ts *testSuite) {
					ts.Treasury.On("ActivityFeed", mock.Anything, uint64(8453), 10).Return(mockEvents, nil)
				},
			},
			{
				name:           "MissingChainID",
				queryParams:    map[string]string{},
				expectedStatus: http.StatusBadRequest,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// ARRANGE
				ts := newTestSuite(t)

				if tt.setup != nil {
					tt.setup(ts)
				}

				// ACT
				res, err := ts.Client.Get().
					AddPath("/api/v1/treasury/activity").
					SetQueryParams(tt.queryParams).
					Do()

				// ASSERT
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, res.StatusCode, res.String())

				if tt.expectedStatus == http.StatusOK {
					assertResponseContainsJSON(t, res, "events.0.tx_hash", "0xaaa")
				}
			})
		}
	})

	t.Run("History", func(t *testing.T) {
		t.Parallel()

		mockSnapshots := []*models.TreasurySnapshot{
			{ID: 1, ChainID: 8453, Asset: "IDRX", Idle: "100", EscrowLocked: "40", YieldDeployed: "25"},
		}

		tests := []struct {
			name           string
			queryParams    map[string]string
			expectedStatus int
			setup          func(ts *testSuite)
		}{
			{
				name:           "ValidHistory",
				queryParams:    map[string]string{"chain_id": "8453", "asset": "IDRX"},
				expectedStatus: http.StatusOK,
				setup: func(ts *testSuite) {
					ts.Treasury.
						On("History", mock.Anything, uint64(8453), "IDRX", 100).
						Return(mockSnapshots, nil)
				},
			},
			{
				name:           "MissingAsset",
				queryParams:    map[string]string{"chain_id": "8453"},
				expectedStatus: http.StatusBadRequest,
			},
			{
				name:           "MissingChainID",
				queryParams:    map[string]string{"asset": "IDRX"},
				expectedStatus: http.StatusBadRequest,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// ARRANGE
				ts := newTestSuite(t)

				if tt.setup != nil {
					tt.setup(ts)
				}

				// ACT
				res, err := ts.Client.Get().
					AddPath("/api/v1/treasury/history").
					SetQueryParams(tt.queryParams).
					Do()

				// ASSERT
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, res.StatusCode, res.String())

				if tt.expectedStatus == http.StatusOK {
					assertResponseContainsJSON(t, res, "snapshots.0.asset", "IDRX")
				}
			})
		}
	})
}
