package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobsieve/internal/model"
)

// Stage labels for RecordsTotal.
const (
	StageFetched    = "fetched"
	StageNormalized = "normalized"
	StageDropped    = "dropped"
	StageInserted   = "inserted"
	StageMerged     = "merged"
	StageDuplicate  = "duplicate"
	StageClassified = "classified"
	StageFallback   = "fallback"
	StageKept       = "kept"
	StageWritten    = "written"
)

var (
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsieve_records_total",
			Help: "Records processed per source and pipeline stage",
		},
		[]string{"source", "stage"},
	)

	PageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsieve_page_failures_total",
			Help: "Source pages that failed after retries",
		},
		[]string{"source"},
	)

	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsieve_source_failures_total",
			Help: "Runs in which a source produced no records",
		},
		[]string{"source"},
	)

	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsieve_sink_errors_total",
			Help: "Failed sink writes",
		},
		[]string{"sink"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsieve_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsieve_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobsieve_last_run_timestamp_seconds",
			Help: "Unix time the last pipeline run finished",
		},
	)
)

// AddRecords adds n to the counter for source and stage. Zero is a no-op.
func AddRecords(source, stage string, n int) {
	if n <= 0 {
		return
	}
	RecordsTotal.WithLabelValues(source, stage).Add(float64(n))
}

// RecordRun updates the run-level metrics from a finished summary.
func RecordRun(s *model.RunSummary, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	LastRunTimestamp.Set(float64(s.FinishedAt.Unix()))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server exposes /metrics on its own listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// Start begins listening on addr and serving /metrics in the background.
func Start(addr string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	s := &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return s
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
