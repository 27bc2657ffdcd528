// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blase.metrics")

var (
	// ParseTotal counts parser invocations by language
	ParseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blase_parse_total",
		Help: "Total parses by language",
	}, []string{"language"})

	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blase_parse_duration_seconds",
		Help:    "Parse duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"language"})

	// ParseMemoHits counts parse requests answered from the memo
	ParseMemoHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blase_parse_memo_hits_total",
		Help: "Parse requests served without reparsing",
	})

	// ParseBackdated counts reparses whose tree had the same shape as before
	ParseBackdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blase_parse_backdated_total",
		Help: "Reparses that produced a tree equal to the previous one",
	})

	DiagnosticQueryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blase_diagnostic_query_errors_total",
		Help: "Error queries that failed to run",
	})

	ChangesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blase_changes_dropped_total",
		Help: "Content changes dropped because their range did not resolve",
	})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blase_open_documents",
		Help: "Documents currently open in the editor",
	})

	FilesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blase_workspace_files_loaded_total",
		Help: "Workspace files read by the loader",
	})
)

// ObserveParse records one parse of the given language.
func ObserveParse(language string, started time.Time) {
	ParseTotal.WithLabelValues(language).Inc()
	ParseDuration.WithLabelValues(language).Observe(time.Since(started).Seconds())
}

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		server.Shutdown(shutdown)
	}()

	log.Infof("serving metrics on %s", addr)

	err := server.ListenAndServe()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
