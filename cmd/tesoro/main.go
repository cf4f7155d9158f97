package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/clients/evm"
	"github.com/tesoro-hq/tesoro/api/cmd/tesoro/httpjson"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/db"
	"github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/registry"
	"github.com/tesoro-hq/tesoro/api/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	flags := parseFlags()
	log := logging.New(os.Stdout, flags.LogLevel, flags.LogJSON)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	// Initialize database
	log.Info().Msg("Initializing database connection")
	database, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Msg("Database connection established successfully")

	// Initialize Ethereum clients
	clients, err := evm.ResolveClientsFromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Ethereum clients")
	}

	// Asset and route registry
	reg := registry.New(cfg)

	// Contract readers for treasury balance queries
	readers, err := createReaders(clients)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create contract readers")
	}

	// Core services
	recipientService := services.NewRecipientService(database, log)
	intentService := services.NewIntentService(database, reg, log)
	jobService := services.NewJobService(database, reg, log)
	treasuryService := services.NewTreasuryService(readers, database, cfg, log)

	// Sync services, one per configured contract per chain
	syncServices, err := createSyncServices(clients, database, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sync services")
	}

	// Create metrics service and register every sync service with it
	metricsService := services.NewMetricsService(log)
	for _, syncService := range syncServices {
		metricsService.RegisterSyncService(syncService)
	}

	// Start the metrics updater
	metricsService.StartMetricsUpdater(ctx)
	log.Info().Msg("Started Prometheus metrics service")

	// Start the treasury snapshot time series
	treasuryService.StartSnapshotting(ctx, cfg.SnapshotInterval)

	// Start event reconciliation
	for _, syncService := range syncServices {
		syncService.Start(ctx)
	}
	log.Info().Int("sync_services", len(syncServices)).Msg("Started event reconciliation")

	// Create and start the server
	server := httpjson.New(httpjson.Config{
		Addr:           fmt.Sprintf(":%s", cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
		LogRequests:    true,
		Dependencies: httpjson.Dependencies{
			Database:   database,
			Recipients: recipientService,
			Intents:    intentService,
			Jobs:       jobService,
			Treasury:   treasuryService,
			Metrics:    metricsService,
		},
	})

	serverShutdown := http.StartAsync(server, log)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received, cleaning up services...")

	// Shutdown HTTP server first
	serverShutdown(ctx)

	// Shutdown sync services gracefully
	var shutdownErrors []error

	for _, syncService := range syncServices {
		if err := syncService.Shutdown(shutdownTimeout); err != nil {
			err = errors.Wrap(err, "failed to shutdown sync service")
			shutdownErrors = append(shutdownErrors, err)
		}
	}

	// Log any shutdown errors
	if len(shutdownErrors) > 0 {
		log.Error().Int("errors_count", len(shutdownErrors)).Msg("Encountered errors during shutdown")
		for _, err := range shutdownErrors {
			log.Error().Err(err).Msg("Error during shutdown")
		}
		return
	}

	log.Info().Msg("All services shut down successfully")
}

// createReaders creates a treasury balance reader per connected chain
func createReaders(clients map[uint64]*ethclient.Client) (map[uint64]services.BalanceReader, error) {
	readers := make(map[uint64]services.BalanceReader, len(clients))

	for chainID, client := range clients {
		reader, err := evm.NewContractReader(client)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create contract reader for chain %d", chainID)
		}
		readers[chainID] = reader
	}

	return readers, nil
}

// createSyncServices creates one sync service per configured contract on each
// chain. The escrow contract is mandatory; yield manager and treasury vault
// sync only when an address is configured.
func createSyncServices(
	clients map[uint64]*ethclient.Client,
	database db.Database,
	cfg *config.Config,
	logger zerolog.Logger,
) ([]*services.SyncService, error) {
	var syncServices []*services.SyncService

	for chainID, client := range clients {
		chain, ok := cfg.ChainConfigs[chainID]
		if !ok {
			return nil, errors.Errorf("no chain config for connected chain %d", chainID)
		}

		sources := []models.EventSource{models.SourceEscrow}
		if chain.YieldManagerAddr != "" {
			sources = append(sources, models.SourceYieldManager)
		}
		if chain.TreasuryVaultAddr != "" {
			sources = append(sources, models.SourceTreasuryVault)
		}

		for _, source := range sources {
			syncService, err := services.NewSyncService(
				client,
				database,
				chain,
				source,
				cfg.LookbackBlocks,
				cfg.SyncInterval,
				logger,
			)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to create %s sync service for chain %d", source, chainID)
			}
			syncServices = append(syncServices, syncService)
		}
	}

	return syncServices, nil
}

type flagSet struct {
	LogJSON  bool
	LogLevel zerolog.Level
}

func parseFlags() flagSet {
	var (
		logJSON        bool
		logLevel       string
		logLevelParsed zerolog.Level
	)

	flag.BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	flag.StringVar(&logLevel, "log-level", "info", "Set log level (debug, info, warn, error)")

	flag.Parse()

	switch logLevel {
	case "debug":
		logLevelParsed = zerolog.DebugLevel
	case "warn":
		logLevelParsed = zerolog.WarnLevel
	case "error":
		logLevelParsed = zerolog.ErrorLevel
	default:
		logLevelParsed = zerolog.InfoLevel
	}

	return flagSet{
		LogJSON:  logJSON,
		LogLevel: logLevelParsed,
	}
}
