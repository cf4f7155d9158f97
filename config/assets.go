package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Chain IDs
const (
	BaseChainID        uint64 = 8453
	BaseSepoliaChainID uint64 = 84532
	LiskChainID        uint64 = 1135
)

const (
	mainnetDefaultChains = "8453,1135"

	// DefaultLookbackBlocks bounds the first sync window when no cursor
	// exists yet for a contract.
	DefaultLookbackBlocks uint64 = 10000
)

// chainDefaults holds the built-in per-chain values that env variables
// override.
var chainDefaults = map[uint64]*ChainConfig{
	BaseChainID: {
		ChainID:       BaseChainID,
		Name:          "base",
		DefaultBlock:  26000000,
		BlockInterval: 2 * time.Second,
		MaxBlockRange: 5000,
		Assets: map[string]AssetConfig{
			"IDRX": {Address: "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22", Decimals: 2},
			"USDC": {Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
			"USDT": {Address: "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", Decimals: 6},
			"DAI":  {Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Decimals: 18},
			"EURC": {Address: "0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42", Decimals: 6},
		},
		Routes: RoutePolicy{RFQAllowed: true, FallbackAllowed: true},
	},
	BaseSepoliaChainID: {
		ChainID:       BaseSepoliaChainID,
		Name:          "base-sepolia",
		DefaultBlock:  21000000,
		BlockInterval: 2 * time.Second,
		MaxBlockRange: 5000,
		Assets: map[string]AssetConfig{
			"IDRX": {Address: "0xD63029C1a3dA68b51c67c6D1DeC3DEe50D681661", Decimals: 2},
			"USDC": {Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Decimals: 6},
		},
		Routes: RoutePolicy{RFQAllowed: true, FallbackAllowed: true},
	},
	LiskChainID: {
		ChainID:       LiskChainID,
		Name:          "lisk",
		DefaultBlock:  12000000,
		BlockInterval: 2 * time.Second,
		MaxBlockRange: 5000,
		Assets: map[string]AssetConfig{
			"IDRX": {Address: "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22", Decimals: 2},
			"USDT": {Address: "0x05D032ac25d322df992303dCa074EE7392C117b9", Decimals: 6},
		},
		// No RFQ venue on Lisk yet, fallback AMM only.
		Routes: RoutePolicy{RFQAllowed: false, FallbackAllowed: true},
	},
}

// chainConfigFromEnv builds the config for one chain by layering environment
// overrides on top of the built-in defaults. RPC URL and the escrow address
// are mandatory.
func chainConfigFromEnv(chainID uint64) (*ChainConfig, error) {
	base, ok := chainDefaults[chainID]
	if !ok {
		return nil, errors.Errorf("no built-in defaults for chain %d, set CHAIN_IDS to a supported chain", chainID)
	}

	cfg := &ChainConfig{
		ChainID:       base.ChainID,
		Name:          base.Name,
		DefaultBlock:  base.DefaultBlock,
		BlockInterval: base.BlockInterval,
		MaxBlockRange: base.MaxBlockRange,
		Routes:        base.Routes,
		Assets:        make(map[string]AssetConfig, len(base.Assets)),
		PairOverrides: make(map[string]RoutePolicy),
	}
	for symbol, asset := range base.Assets {
		cfg.Assets[symbol] = asset
	}

	cfg.RPCURL = os.Getenv(chainEnv(chainID, "RPC_URL"))
	if cfg.RPCURL == "" {
		return nil, errors.Errorf("%s is required", chainEnv(chainID, "RPC_URL"))
	}

	cfg.EscrowAddr = os.Getenv(chainEnv(chainID, "ESCROW_ADDR"))
	if cfg.EscrowAddr == "" {
		return nil, errors.Errorf("%s is required", chainEnv(chainID, "ESCROW_ADDR"))
	}

	// Optional surfaces: treasury reads and yield sync are disabled for a
	// chain when the addresses are absent.
	cfg.TreasuryVaultAddr = os.Getenv(chainEnv(chainID, "VAULT_ADDR"))
	cfg.YieldManagerAddr = os.Getenv(chainEnv(chainID, "YIELD_MANAGER_ADDR"))
	cfg.RouteRegistryAddr = os.Getenv(chainEnv(chainID, "ROUTE_REGISTRY_ADDR"))

	if raw := os.Getenv(chainEnv(chainID, "DEFAULT_BLOCK")); raw != "" {
		block, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", chainEnv(chainID, "DEFAULT_BLOCK"))
		}
		cfg.DefaultBlock = block
	}

	if raw := os.Getenv(chainEnv(chainID, "MAX_BLOCK_RANGE")); raw != "" {
		rng, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", chainEnv(chainID, "MAX_BLOCK_RANGE"))
		}
		cfg.MaxBlockRange = rng
	}

	return cfg, nil
}

func chainEnv(chainID uint64, suffix string) string {
	return fmt.Sprintf("CHAIN_%d_%s", chainID, suffix)
}
