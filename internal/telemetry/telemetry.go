// Package telemetry exposes Prometheus metrics for the funcqc analysis
// pipeline: counters per stage and histograms for stage durations.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds the Prometheus metrics for one pipeline run. Metrics
// are process-wide (registered once via sync.Once) so repeated
// invocations within a long-lived process (e.g. watch mode) accumulate.
type Pipeline struct {
	once sync.Once

	FilesWalked  prometheus.Counter
	FilesParsed  prometheus.Counter
	FilesSkipped prometheus.Counter

	FunctionsExtracted *prometheus.CounterVec // by kind

	CallEdgesResolved *prometheus.CounterVec // by call type

	DiffAdded    prometheus.Counter
	DiffRemoved  prometheus.Counter
	DiffModified prometheus.Counter

	LineageCandidates *prometheus.CounterVec // by kind

	SnapshotWrites     prometheus.Counter
	SnapshotWriteFails prometheus.Counter

	WalkDuration      prometheus.Histogram
	ParseDuration     prometheus.Histogram
	MetricDuration    prometheus.Histogram
	CallGraphDuration prometheus.Histogram
	SnapshotDuration  prometheus.Histogram
	DiffDuration      prometheus.Histogram
	LineageDuration   prometheus.Histogram
}

var pipeline Pipeline

// Get returns the process-wide Pipeline metrics, initializing and
// registering them on first call.
func Get() *Pipeline {
	pipeline.once.Do(pipeline.init)
	return &pipeline
}

func (p *Pipeline) init() {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	p.FilesWalked = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_files_walked_total", Help: "Files discovered by the source walker"})
	p.FilesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_files_parsed_total", Help: "Files successfully parsed"})
	p.FilesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_files_skipped_total", Help: "Files skipped after a parse error"})

	p.FunctionsExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "funcqc_functions_extracted_total", Help: "Function records extracted, by kind"}, []string{"kind"})

	p.CallEdgesResolved = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "funcqc_call_edges_total", Help: "Call edges resolved, by call type"}, []string{"call_type"})

	p.DiffAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_diff_added_total", Help: "Added functions across all diffs"})
	p.DiffRemoved = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_diff_removed_total", Help: "Removed functions across all diffs"})
	p.DiffModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_diff_modified_total", Help: "Modified functions across all diffs"})

	p.LineageCandidates = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "funcqc_lineage_candidates_total", Help: "Lineage candidates proposed, by kind"}, []string{"kind"})

	p.SnapshotWrites = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_snapshot_writes_total", Help: "Successful snapshot writes"})
	p.SnapshotWriteFails = prometheus.NewCounter(prometheus.CounterOpts{Name: "funcqc_snapshot_write_failures_total", Help: "Failed snapshot writes (rolled back)"})

	p.WalkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_walk_seconds", Help: "Source walker duration", Buckets: buckets})
	p.ParseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_parse_seconds", Help: "Function extractor duration", Buckets: buckets})
	p.MetricDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_metric_seconds", Help: "Metric calculator duration", Buckets: buckets})
	p.CallGraphDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_callgraph_seconds", Help: "Call-graph builder duration", Buckets: buckets})
	p.SnapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_snapshot_write_seconds", Help: "Snapshot store write duration", Buckets: buckets})
	p.DiffDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_diff_seconds", Help: "Diff engine duration", Buckets: buckets})
	p.LineageDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "funcqc_lineage_seconds", Help: "Lineage detector duration", Buckets: buckets})

	prometheus.MustRegister(
		p.FilesWalked, p.FilesParsed, p.FilesSkipped,
		p.FunctionsExtracted, p.CallEdgesResolved,
		p.DiffAdded, p.DiffRemoved, p.DiffModified,
		p.LineageCandidates,
		p.SnapshotWrites, p.SnapshotWriteFails,
		p.WalkDuration, p.ParseDuration, p.MetricDuration,
		p.CallGraphDuration, p.SnapshotDuration, p.DiffDuration, p.LineageDuration,
	)
}
