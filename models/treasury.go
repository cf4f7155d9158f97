package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetBreakdown decomposes the treasury's position in one asset.
// Invariant: Idle + EscrowLocked + YieldDeployed == Total. All values are
// base units. Idle and YieldDeployed come from live chain reads;
// EscrowLocked is a local aggregate, eventually consistent with chain state
// within reconciliation lag.
type AssetBreakdown struct {
	Asset         string          `json:"asset"`
	Idle          decimal.Decimal `json:"idle"`
	EscrowLocked  decimal.Decimal `json:"escrow_locked"`
	YieldDeployed decimal.Decimal `json:"yield_deployed"`
	Total         decimal.Decimal `json:"total"`

	// YieldUnavailable is set when the yield reads failed and YieldDeployed
	// was degraded to zero instead of failing the whole aggregation.
	YieldUnavailable bool `json:"yield_unavailable,omitempty"`
}

// TreasuryBreakdown is the full per-asset decomposition plus the combined
// grand total.
type TreasuryBreakdown struct {
	ChainID    uint64           `json:"chain_id"`
	Assets     []AssetBreakdown `json:"assets"`
	GrandTotal decimal.Decimal  `json:"grand_total"`
	ComputedAt time.Time        `json:"computed_at"`
}

// TreasurySnapshot is one persisted row of the append-only breakdown time
// series.
type TreasurySnapshot struct {
	ID            int64     `json:"id"`
	ChainID       uint64    `json:"chain_id"`
	Asset         string    `json:"asset"` // "COMBINED" for the grand-total row
	Idle          string    `json:"idle"`
	EscrowLocked  string    `json:"escrow_locked"`
	YieldDeployed string    `json:"yield_deployed"`
	Total         string    `json:"total"`
	TakenAt       time.Time `json:"taken_at"`
}

// SnapshotAssetCombined is the asset key used for the grand-total row.
const SnapshotAssetCombined = "COMBINED"
