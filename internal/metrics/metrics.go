// Package metrics exposes Prometheus counters for the preprocessing pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Registry holds every collector of this package; the default registry is left alone
var Registry = prometheus.NewRegistry()

var (
	documentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "documents_processed_total",
			Help:      "The total number of documents run through the pipeline.",
		},
	)
	chunksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "chunks_created_total",
			Help:      "The total number of chunks created.",
		},
	)
	entitiesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "entities_extracted_total",
			Help:      "The total number of entities extracted.",
		},
		[]string{"type"}, // money, percentage, date, ticker
	)
	invalidConfig = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "invalid_config_total",
			Help:      "The total number of calls rejected for an invalid chunk configuration.",
		},
	)
	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "cache_hits_total",
			Help:      "Total number of process_document cache hits.",
		},
	)
	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "cache_misses_total",
			Help:      "Total number of process_document cache misses.",
		},
	)
	singleflightShared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragprep",
			Name:      "cache_singleflight_shared_total",
			Help:      "Total number of process_document misses that shared another caller's run.",
		},
	)
	processDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragprep",
			Name:      "process_duration_seconds",
			Help:      "Time taken to process one document.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// Entity type labels
const (
	EntityMoney      = "money"
	EntityPercentage = "percentage"
	EntityDate       = "date"
	EntityTicker     = "ticker"
)

func init() {
	Registry.MustRegister(documentsProcessed)
	Registry.MustRegister(chunksCreated)
	Registry.MustRegister(entitiesExtracted)
	Registry.MustRegister(invalidConfig)
	Registry.MustRegister(cacheHits)
	Registry.MustRegister(cacheMisses)
	Registry.MustRegister(singleflightShared)
	Registry.MustRegister(processDuration)
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// RecordDocument records one processed document, its chunk count and duration
func RecordDocument(chunks int, elapsed time.Duration) {
	documentsProcessed.Inc()
	chunksCreated.Add(float64(chunks))
	processDuration.Observe(elapsed.Seconds())
}

// RecordEntities adds n extracted entities of the given type
func RecordEntities(entityType string, n int) {
	if n <= 0 {
		return
	}
	entitiesExtracted.WithLabelValues(entityType).Add(float64(n))
}

// RecordInvalidConfig increments the invalid configuration counter
func RecordInvalidConfig() {
	invalidConfig.Inc()
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordSingleflightShared increments the counter of misses collapsed into a shared run
func RecordSingleflightShared() {
	singleflightShared.Inc()
}

// Handler serves Registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
