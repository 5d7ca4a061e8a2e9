package progress

import "github.com/prometheus/client_golang/prometheus"

// PromSink publishes Q, gap and cut count as gauges, for long-running solves
// monitored alongside the rest of a service's metrics.
type PromSink struct {
	q    prometheus.Gauge
	gap  prometheus.Gauge
	cuts prometheus.Gauge
}

// NewPromSink registers three gauges under the given namespace and returns a
// Sink backed by them. Call with a dedicated *prometheus.Registry in tests to
// avoid collisions with the default global registry.
func NewPromSink(reg prometheus.Registerer, namespace string) *PromSink {
	s := &PromSink{
		q: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "objective", Help: "current upper bound on E[Q]",
		}),
		gap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "gap", Help: "current optimality gap",
		}),
		cuts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cuts_total", Help: "cuts inserted into the master model so far",
		}),
	}
	reg.MustRegister(s.q, s.gap, s.cuts)
	return s
}

func (s *PromSink) Update(iteration int, q, gap float64, cuts int) {
	s.q.Set(q)
	s.gap.Set(gap)
	s.cuts.Set(float64(cuts))
}

var _ Sink = (*PromSink)(nil)
