package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// Gauges is a sink.Factory exporting the latest measurements.
// Booleans are exported as 0 or 1. Text values are exported as an info
// gauge labeled with the current value.
type Gauges struct {
	Values *prometheus.GaugeVec // labels: measurement
	Info   *prometheus.GaugeVec // labels: measurement, value

	lock sync.Mutex
	text map[sink.Measurement]string
}

// NewGauges registers and returns the measurement gauges.
func NewGauges(reg prometheus.Registerer) *Gauges {
	g := &Gauges{
		Values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "measurement",
			Help:      "Latest numeric measurement.",
		}, []string{"measurement"}),
		Info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "measurement_info",
			Help:      "Latest text measurement.",
		}, []string{"measurement", "value"}),
		text: make(map[sink.Measurement]string),
	}
	reg.MustRegister(g.Values, g.Info)
	return g
}

// NumberSink implements sink.Factory.
func (g *Gauges) NumberSink(name sink.Measurement) sink.NumberSink {
	gauge := g.Values.WithLabelValues(string(name))
	return sink.NumberFunc(gauge.Set)
}

// BoolSink implements sink.Factory.
func (g *Gauges) BoolSink(name sink.Measurement) sink.BoolSink {
	gauge := g.Values.WithLabelValues(string(name))
	return sink.BoolFunc(func(v bool) {
		if v {
			gauge.Set(1)
		} else {
			gauge.Set(0)
		}
	})
}

// TextSink implements sink.Factory.
func (g *Gauges) TextSink(name sink.Measurement) sink.TextSink {
	return sink.TextFunc(func(v string) {
		g.lock.Lock()
		defer g.lock.Unlock()
		if prev, ok := g.text[name]; ok && prev != v {
			g.Info.DeleteLabelValues(string(name), prev)
		}
		g.text[name] = v
		g.Info.WithLabelValues(string(name), v).Set(1)
	})
}
