// Package metrics exposes radar engine statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/mmwave.go/pkg/radar/frame"
)

// Namespace prefixes every metric name.
const Namespace = "mmwave"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// FrameMetrics counts reassembler activity.
type FrameMetrics struct {
	BytesTotal  prometheus.Counter
	ResetsTotal *prometheus.CounterVec // labels: reason
	FramesTotal *prometheus.CounterVec // labels: type
	Buffered    prometheus.Gauge
}

// NewFrameMetrics registers and returns the frame metrics.
func NewFrameMetrics(reg prometheus.Registerer) *FrameMetrics {
	m := &FrameMetrics{
		BytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_received_total",
			Help:      "Total bytes fed into the reassembler.",
		}),
		ResetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resets_total",
			Help:      "Accumulator resets by reason.",
		}, []string{"reason"}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Valid frames by type.",
		}, []string{"type"}),
		Buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "buffered_bytes",
			Help:      "Bytes currently held in the accumulator.",
		}),
	}
	reg.MustRegister(m.BytesTotal, m.ResetsTotal, m.FramesTotal, m.Buffered)
	return m
}

// ObserveParse records a reassembler result. buffered is the accumulator
// length after the result.
func (m *FrameMetrics) ObserveParse(res frame.ParseResult, buffered int) {
	if res.Reason != frame.ReasonStale {
		m.BytesTotal.Inc()
	}
	if res.Outcome == frame.Reset {
		m.ResetsTotal.WithLabelValues(res.Reason.String()).Inc()
	}
	if res.Frame != nil {
		m.FramesTotal.WithLabelValues(res.Frame.Type.String()).Inc()
	}
	m.Buffered.Set(float64(buffered))
}
