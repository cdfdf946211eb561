// Package metrics exposes Prometheus instrumentation for the review ledger.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsTotal counts accepted encrypted score submissions.
	SubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_ledger_submissions_total",
		Help: "Accepted encrypted score submissions.",
	})

	// DecryptionRequestsTotal counts issued decryption requests.
	DecryptionRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_ledger_decryption_requests_total",
		Help: "Issued aggregate decryption requests.",
	})

	// OracleCallbacksTotal counts oracle result deliveries by outcome.
	OracleCallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_ledger_oracle_callbacks_total",
		Help: "Oracle result deliveries by outcome.",
	}, []string{"outcome"})

	// RejectedOperationsTotal counts guard rejections by reason.
	RejectedOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_ledger_rejected_operations_total",
		Help: "Operations rejected by a ledger guard, by reason.",
	}, []string{"reason"})
)

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given address. An empty address
// returns a disabled server whose ListenAndServe is a no-op.
func New(name, addr string) (*MetricsServer, error) {
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe starts the metrics listener.
func (s *MetricsServer) ListenAndServe() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
