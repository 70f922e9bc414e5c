// Package metrics exposes prometheus counters for fetch sessions, imgur
// requests and store failures. Every method is safe on a nil *Metrics so
// components can be built without metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imgurstats/pkg/logger"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Fetch session metrics
	PagesTotal    *prometheus.CounterVec
	ItemsApplied  *prometheus.CounterVec
	SessionsTotal *prometheus.CounterVec
	PageDelay     prometheus.Gauge

	// Ranking and storage metrics
	TopMinScore *prometheus.GaugeVec
	StoreErrors *prometheus.CounterVec
}

// New creates metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgurstats_requests_total",
				Help: "Total number of imgur requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imgurstats_request_duration_seconds",
				Help:    "Duration of imgur requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgurstats_pages_total",
				Help: "Pages processed by fetch sessions, by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		ItemsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgurstats_items_applied_total",
				Help: "Score entries applied to the ledger",
			},
			[]string{"source"},
		),

		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgurstats_sessions_total",
				Help: "Fetch sessions by source and final state",
			},
			[]string{"source", "state"},
		),

		PageDelay: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "imgurstats_page_delay_seconds",
				Help: "Current inter-page courtesy delay",
			},
		),

		TopMinScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "imgurstats_top_min_score",
				Help: "Lowest score kept in the top list after the last compaction",
			},
			[]string{"scope"},
		),

		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgurstats_store_errors_total",
				Help: "Store operations that failed and were degraded to a default",
			},
			[]string{"op"},
		),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) ObservePage(source, outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) AddApplied(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsApplied.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveSession(source, state string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(source, state).Inc()
}

func (m *Metrics) SetPageDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDelay.Set(d.Seconds())
}

func (m *Metrics) SetTopMinScore(scope string, score int64) {
	if m == nil {
		return
	}
	m.TopMinScore.WithLabelValues(scope).Set(float64(score))
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.InfoWithFields("Serving metrics", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
