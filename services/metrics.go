package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/logging"
	"github.com/tesoro-hq/tesoro/api/models"
)

// MetricsService handles Prometheus metrics collection and exposition
type MetricsService struct {
	eventsProcessedTotal  *prometheus.GaugeVec
	eventsSkippedTotal    *prometheus.GaugeVec
	processingErrorsTotal *prometheus.GaugeVec
	lastSyncedBlock       *prometheus.GaugeVec
	timeSinceLastRun      *prometheus.GaugeVec
	syncInFlight          *prometheus.GaugeVec

	syncServices map[string]*SyncService
	mu           sync.RWMutex
	logger       zerolog.Logger
	registry     *prometheus.Registry
}

// NewMetricsService creates a new metrics service
func NewMetricsService(logger zerolog.Logger) *MetricsService {
	registry := prometheus.NewRegistry()

	labels := []string{"chain_id", "source"}

	eventsProcessedTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_events_processed_total",
			Help: "Total number of chain events recorded per synced contract",
		},
		labels,
	)

	eventsSkippedTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_events_skipped_total",
			Help: "Total number of duplicate chain events skipped per synced contract",
		},
		labels,
	)

	processingErrorsTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_sync_errors_total",
			Help: "Total number of failed sync passes per synced contract",
		},
		labels,
	)

	lastSyncedBlock := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_last_synced_block",
			Help: "Last block number whose logs were fully applied per synced contract",
		},
		labels,
	)

	timeSinceLastRun := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_time_since_last_sync_seconds",
			Help: "Seconds since the last sync pass started per synced contract",
		},
		labels,
	)

	syncInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tesoro_sync_in_flight",
			Help: "Whether a sync pass is currently running (1) or idle (0)",
		},
		labels,
	)

	registry.MustRegister(eventsProcessedTotal)
	registry.MustRegister(eventsSkippedTotal)
	registry.MustRegister(processingErrorsTotal)
	registry.MustRegister(lastSyncedBlock)
	registry.MustRegister(timeSinceLastRun)
	registry.MustRegister(syncInFlight)

	return &MetricsService{
		eventsProcessedTotal:  eventsProcessedTotal,
		eventsSkippedTotal:    eventsSkippedTotal,
		processingErrorsTotal: processingErrorsTotal,
		lastSyncedBlock:       lastSyncedBlock,
		timeSinceLastRun:      timeSinceLastRun,
		syncInFlight:          syncInFlight,
		syncServices:          make(map[string]*SyncService),
		logger:                logger.With().Str(logging.FieldModule, "metrics_service").Logger(),
		registry:              registry,
	}
}

func syncKey(chainID uint64, source models.EventSource) string {
	return fmt.Sprintf("%d/%s", chainID, source)
}

// RegisterSyncService registers a sync service for metrics collection
func (m *MetricsService) RegisterSyncService(service *SyncService) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := service.GetMetrics()
	m.syncServices[syncKey(metrics.ChainID, metrics.Source)] = service
	m.logger.Info().
		Uint64(logging.FieldChain, metrics.ChainID).
		Str(logging.FieldSource, string(metrics.Source)).
		Msg("Registered sync service in metrics collector")
}

// UpdateMetrics collects and updates all metrics from registered sync services
func (m *MetricsService) UpdateMetrics() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()

	for _, service := range m.syncServices {
		metrics := service.GetMetrics()
		chainID := fmt.Sprintf("%d", metrics.ChainID)
		source := string(metrics.Source)

		m.eventsProcessedTotal.WithLabelValues(chainID, source).Set(float64(metrics.EventsProcessed))
		m.eventsSkippedTotal.WithLabelValues(chainID, source).Set(float64(metrics.EventsSkipped))
		m.processingErrorsTotal.WithLabelValues(chainID, source).Set(float64(metrics.ProcessingErrors))
		m.lastSyncedBlock.WithLabelValues(chainID, source).Set(float64(metrics.LastSyncedBlock))

		if metrics.InFlight {
			m.syncInFlight.WithLabelValues(chainID, source).Set(1)
		} else {
			m.syncInFlight.WithLabelValues(chainID, source).Set(0)
		}

		if !metrics.LastRunTime.IsZero() {
			m.timeSinceLastRun.WithLabelValues(chainID, source).Set(now.Sub(metrics.LastRunTime).Seconds())
		}
	}
}

// StartMetricsUpdater starts a goroutine that periodically updates metrics
func (m *MetricsService) StartMetricsUpdater(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		m.logger.Info().Msg("Started Prometheus metrics updater")

		for {
			select {
			case <-ticker.C:
				m.UpdateMetrics()
			case <-ctx.Done():
				m.logger.Info().Msg("Stopped Prometheus metrics updater")
				return
			}
		}
	}()
}

// Summary returns a point-in-time snapshot of every registered sync
// service, sorted by chain then source for stable output.
func (m *MetricsService) Summary() []SyncMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SyncMetrics, 0, len(m.syncServices))
	for _, service := range m.syncServices {
		out = append(out, service.GetMetrics())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChainID != out[j].ChainID {
			return out[i].ChainID < out[j].ChainID
		}
		return out[i].Source < out[j].Source
	})

	return out
}

// GetHandler returns the Prometheus metrics HTTP handler
func (m *MetricsService) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
