// Package telemetry exposes the service's Prometheus metrics. The registry
// default is used so promhttp.Handler() picks everything up.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DigitRequests counts digit reads by constant and the source that
	// ultimately served them (chunks, packed, file).
	DigitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_digit_requests_total",
		Help: "Digit range reads served, by constant and serving source.",
	}, []string{"constant", "source"})

	// CacheFallbacks counts reads that fell back from the chunk store to the
	// canonical file, by failure reason.
	CacheFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_cache_fallbacks_total",
		Help: "Chunk-store read failures recovered by canonical-file fallback.",
	}, []string{"constant", "reason"})

	// CorruptionDetected counts verification failures by source.
	CorruptionDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_corruption_detected_total",
		Help: "Corruption detections (checksum mismatch or source divergence).",
	}, []string{"constant", "source"})

	// Verifications counts cross-verification runs by outcome.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_verifications_total",
		Help: "Cross-source verification runs, by outcome (ok, failed).",
	}, []string{"constant", "outcome"})

	// BuildChunks counts chunks written by the cache build pipeline.
	BuildChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_build_chunks_total",
		Help: "Chunks written into the derived stores by cache builds.",
	}, []string{"constant"})

	// SearchRequests counts sequence searches.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_search_requests_total",
		Help: "Digit sequence searches.",
	}, []string{"constant"})

	// RequestDuration observes HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "constantdb_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})

	// AuditRuns counts scheduled integrity audit runs by outcome.
	AuditRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "constantdb_audit_runs_total",
		Help: "Scheduled chunk-store integrity audits, by outcome.",
	}, []string{"constant", "outcome"})
)
