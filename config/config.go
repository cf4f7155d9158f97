package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds all configuration for the application. It is constructed once
// at startup and injected into every component; there are no package-global
// lookup tables.
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins string

	// Database configuration
	DatabaseURL string

	// Reconciliation configuration
	SyncInterval   time.Duration
	LookbackBlocks uint64

	// Treasury snapshot time series interval
	SnapshotInterval time.Duration

	// Per-chain configuration, keyed by chain id
	ChainConfigs map[uint64]*ChainConfig
}

// ChainConfig describes one chain the treasury operates on: RPC endpoint,
// the contract surface we sync against, and the asset registry entries.
type ChainConfig struct {
	ChainID       uint64
	Name          string
	RPCURL        string
	DefaultBlock  uint64
	BlockInterval time.Duration
	MaxBlockRange uint64

	EscrowAddr        string
	TreasuryVaultAddr string
	YieldManagerAddr  string
	RouteRegistryAddr string

	// Assets maps symbolic names (IDRX, USDC, ...) to their on-chain
	// identity on this chain.
	Assets map[string]AssetConfig

	// Routes is the venue policy consulted when a funding/payout pair
	// requires a swap. PairOverrides is keyed "FUNDING/PAYOUT".
	Routes        RoutePolicy
	PairOverrides map[string]RoutePolicy
}

// AssetConfig is one asset registry entry.
type AssetConfig struct {
	Address  string
	Decimals int
}

// RoutePolicy reports which swap venues are allowed for a pair.
type RoutePolicy struct {
	RFQAllowed      bool
	FallbackAllowed bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", "postgresql://localhost:5432/tesoro?sslmode=disable"),
		SyncInterval:   getDurationOrDefault("SYNC_INTERVAL", 15*time.Second),
		LookbackBlocks: getUintOrDefault("SYNC_LOOKBACK_BLOCKS", DefaultLookbackBlocks),

		SnapshotInterval: getDurationOrDefault("TREASURY_SNAPSHOT_INTERVAL", time.Hour),

		ChainConfigs: make(map[uint64]*ChainConfig),
	}

	chainIDs, err := resolveChainIDs()
	if err != nil {
		return nil, err
	}

	for _, chainID := range chainIDs {
		chainCfg, err := chainConfigFromEnv(chainID)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %d", chainID)
		}
		cfg.ChainConfigs[chainID] = chainCfg
	}

	return cfg, nil
}

// resolveChainIDs reads the comma-separated CHAIN_IDS variable, falling back
// to the mainnet default set.
func resolveChainIDs() ([]uint64, error) {
	raw := getEnvOrDefault("CHAIN_IDS", mainnetDefaultChains)

	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid chain id %q in CHAIN_IDS", part)
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, errors.New("CHAIN_IDS resolved to an empty set")
	}

	return ids, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
