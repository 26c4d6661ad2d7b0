// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DocumentsUploaded counts accepted document uploads.
	DocumentsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statements_documents_uploaded_total",
		Help: "Number of documents uploaded",
	})

	// DocumentsProcessed counts processing outcomes by status.
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statements_documents_processed_total",
		Help: "Number of document processing runs by outcome",
	}, []string{"status"})

	// TransactionsExtracted counts transactions produced by the extraction engine.
	TransactionsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statements_transactions_extracted_total",
		Help: "Number of transactions extracted from documents",
	})

	// ProcessingDuration observes end-to-end document processing time.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statements_processing_duration_seconds",
		Help:    "Document processing duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// HTTPRequests counts API requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statements_http_requests_total",
		Help: "Number of HTTP requests",
	}, []string{"method", "route", "status"})
)

// Serve starts the metrics HTTP server on the given port. It blocks, so run
// it in its own goroutine.
func Serve(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("metrics server listening", slog.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
