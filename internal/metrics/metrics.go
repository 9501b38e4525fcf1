// Package metrics exposes Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts completed scans by final status.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketscan",
		Name:      "scans_total",
		Help:      "Completed package scans by final status",
	}, []string{"status"})

	// FindingsTotal counts post-filter findings by severity.
	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketscan",
		Name:      "findings_total",
		Help:      "Reported findings by severity, after false-positive filtering",
	}, []string{"severity"})

	// SuppressedFindingsTotal counts findings removed by the false-positive
	// filter.
	SuppressedFindingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketscan",
		Name:      "suppressed_findings_total",
		Help:      "Findings removed by the false-positive filter",
	})

	// AICallsTotal counts AI completion calls by outcome.
	AICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketscan",
		Name:      "ai_calls_total",
		Help:      "AI completion calls by outcome",
	}, []string{"outcome"})

	// ScanDuration observes end-to-end scan latency.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "marketscan",
		Name:      "scan_duration_seconds",
		Help:      "End-to-end scan duration",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
