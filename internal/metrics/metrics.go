package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Files successfully parsed, by compound extension.
	FilesParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techjournal_files_parsed_total",
		Help: "Total number of activity files parsed",
	}, []string{"format"})

	// Files that failed, by reason (unsupported, malformed_lap, no_location, decompression, other).
	FilesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techjournal_files_failed_total",
		Help: "Total number of activity files that failed to parse or store",
	}, []string{"reason"})

	FilesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "techjournal_files_skipped_total",
		Help: "Total number of activity files skipped as already imported",
	})

	PointsDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "techjournal_points_decoded_total",
		Help: "Total number of track points decoded",
	})

	FileParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "techjournal_file_parse_duration_seconds",
		Help:    "Time taken to parse a single activity file",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "techjournal_active_workers",
		Help: "Current number of busy import workers",
	})
)

const namePrefix = "techjournal_"

// Snapshot gathers the techjournal_ series from g as flat name → value
// pairs. Labelled series are keyed as name{label="value"}; histograms report
// their sample count and sum as name_count and name_sum.
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, namePrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			key := name
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key+"_count"] = float64(m.GetHistogram().GetSampleCount())
				out[key+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out, nil
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for a node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
