// Package registry resolves asset identities and swap-route decisions from
// injected chain configuration. It performs no network calls; every lookup
// is answered from the Config snapshot the registry was constructed with.
package registry

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/config"
)

var (
	ErrUnknownChain     = errors.New("unknown chain")
	ErrUnknownAsset     = errors.New("unknown asset")
	ErrNoRouteAvailable = errors.New("no route available")
)

// RoutePreference narrows which swap venues a caller will accept. It is a
// closed set; any other value is rejected at the boundary.
type RoutePreference int

const (
	RouteRFQOnly RoutePreference = iota
	RouteFallbackOnly
	RouteAllowFallback
)

// ParseRoutePreference maps the wire representation to the closed enum.
// An absent preference resolves to ALLOW_FALLBACK so it can route on any
// venue the pair's policy permits.
func ParseRoutePreference(s string) (RoutePreference, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RFQ_ONLY":
		return RouteRFQOnly, nil
	case "FALLBACK_ONLY":
		return RouteFallbackOnly, nil
	case "", "ALLOW_FALLBACK":
		return RouteAllowFallback, nil
	default:
		return 0, errors.Errorf("invalid route preference %q", s)
	}
}

func (p RoutePreference) String() string {
	switch p {
	case RouteRFQOnly:
		return "RFQ_ONLY"
	case RouteFallbackOnly:
		return "FALLBACK_ONLY"
	case RouteAllowFallback:
		return "ALLOW_FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Asset is a resolved asset registry entry.
type Asset struct {
	Symbol   string
	Address  string
	Decimals int
	ChainID  uint64
}

// RouteDecision is the plan for moving funds from the funding asset to the
// payout asset. SwapRequired is false when the two resolve to the same
// address, compared case-insensitively.
type RouteDecision struct {
	FundingAsset Asset
	PayoutAsset  Asset
	SwapRequired bool
	UseRFQ       bool
	UseFallback  bool
}

// Registry answers asset and route lookups for all configured chains.
type Registry struct {
	chains map[uint64]*config.ChainConfig
}

// New builds a registry over the injected chain configs.
func New(cfg *config.Config) *Registry {
	return &Registry{chains: cfg.ChainConfigs}
}

// ResolveAsset looks up an asset by symbol on a chain.
func (r *Registry) ResolveAsset(chainID uint64, symbol string) (Asset, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return Asset{}, errors.Wrapf(ErrUnknownChain, "chain %d", chainID)
	}

	entry, ok := chain.Assets[strings.ToUpper(symbol)]
	if !ok {
		return Asset{}, errors.Wrapf(ErrUnknownAsset, "%q on chain %d", symbol, chainID)
	}

	return Asset{
		Symbol:   strings.ToUpper(symbol),
		Address:  entry.Address,
		Decimals: entry.Decimals,
		ChainID:  chainID,
	}, nil
}

// DecideRoute resolves both assets and determines whether and how a swap
// will be routed. The decision is made before any funds move: when the pair
// requires a swap but the policy and preference leave no usable venue,
// ErrNoRouteAvailable is returned so the caller can refuse the intent
// upfront.
func (r *Registry) DecideRoute(chainID uint64, fundingSymbol, payoutSymbol string, pref RoutePreference) (RouteDecision, error) {
	funding, err := r.ResolveAsset(chainID, fundingSymbol)
	if err != nil {
		return RouteDecision{}, err
	}
	payout, err := r.ResolveAsset(chainID, payoutSymbol)
	if err != nil {
		return RouteDecision{}, err
	}

	decision := RouteDecision{
		FundingAsset: funding,
		PayoutAsset:  payout,
		SwapRequired: !strings.EqualFold(funding.Address, payout.Address),
	}
	if !decision.SwapRequired {
		return decision, nil
	}

	policy := r.pairPolicy(chainID, funding.Symbol, payout.Symbol)

	switch pref {
	case RouteRFQOnly:
		decision.UseRFQ = policy.RFQAllowed
	case RouteFallbackOnly:
		decision.UseFallback = policy.FallbackAllowed
	case RouteAllowFallback:
		decision.UseRFQ = policy.RFQAllowed
		decision.UseFallback = policy.FallbackAllowed
	default:
		return RouteDecision{}, errors.Errorf("invalid route preference %d", pref)
	}

	if !decision.UseRFQ && !decision.UseFallback {
		return RouteDecision{}, errors.Wrapf(ErrNoRouteAvailable, "%s/%s on chain %d with preference %s",
			funding.Symbol, payout.Symbol, chainID, pref)
	}

	return decision, nil
}

// pairPolicy returns the pair override when one exists, otherwise the
// chain-wide policy.
func (r *Registry) pairPolicy(chainID uint64, fundingSymbol, payoutSymbol string) config.RoutePolicy {
	chain := r.chains[chainID]
	if override, ok := chain.PairOverrides[fundingSymbol+"/"+payoutSymbol]; ok {
		return override
	}
	return chain.Routes
}

// EscrowAddress returns the escrow contract address configured for a chain.
func (r *Registry) EscrowAddress(chainID uint64) (string, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return "", errors.Wrapf(ErrUnknownChain, "chain %d", chainID)
	}
	return chain.EscrowAddr, nil
}

// ChainIDs lists the configured chains in no particular order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}
