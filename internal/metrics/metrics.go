package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_scan_runs_total",
			Help: "Total number of catalog reconciliation runs",
		},
		[]string{"status"}, // "success", "error", "canceled"
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_collection_scan_last_run_duration_seconds",
			Help: "Duration of the last reconciliation run in seconds",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_collection_scan_last_run_timestamp",
			Help: "Unix timestamp of the last finished reconciliation run",
		},
	)

	FilesIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_files_indexed_total",
			Help: "Total number of files written to the catalog",
		},
		[]string{"kind"},
	)

	FilesPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_collection_files_pruned_total",
			Help: "Total number of catalog entries removed because the file vanished",
		},
	)

	FileFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_file_failures_total",
			Help: "Per-file failures that were skipped during a scan",
		},
		[]string{"reason"}, // "stat"
	)

	MetadataMissingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_metadata_missing_total",
			Help: "Files indexed without a capture date",
		},
		[]string{"kind"},
	)
)

// Catalog metrics
var (
	CatalogQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_catalog_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picture_collection_catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	CatalogCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_catalog_commits_total",
			Help: "Catalog transaction outcomes",
		},
		[]string{"outcome"}, // "commit", "rollback"
	)
)

// Analytics metrics
var (
	SeriesRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_series_requests_total",
			Help: "Aggregated series computed, by bucket granularity",
		},
		[]string{"group_by"},
	)

	ChartsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_collection_charts_rendered_total",
			Help: "Chart output attempts by outcome",
		},
		[]string{"outcome"}, // "rendered", "fallback"
	)
)

// Init pre-populates label combinations so every series is exported from the
// first scrape.
func Init() {
	for _, status := range []string{"success", "error", "canceled"} {
		ScanRunsTotal.WithLabelValues(status)
	}
	for _, kind := range []string{"image", "video"} {
		FilesIndexedTotal.WithLabelValues(kind)
		MetadataMissingTotal.WithLabelValues(kind)
	}
	FileFailuresTotal.WithLabelValues("stat")
	for _, outcome := range []string{"commit", "rollback"} {
		CatalogCommitsTotal.WithLabelValues(outcome)
	}
	for _, groupBy := range []string{"month", "year"} {
		SeriesRequestsTotal.WithLabelValues(groupBy)
	}
	for _, outcome := range []string{"rendered", "fallback"} {
		ChartsRenderedTotal.WithLabelValues(outcome)
	}
}
