package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the pool's mutating entry points.
type Metrics struct {
	opDuration *prometheus.HistogramVec
	opsTotal   *prometheus.CounterVec
	tickCount  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clpool",
			Subsystem: "pool",
			Name:      "op_duration_seconds",
			Help:      "Duration of pool mutating operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clpool",
			Subsystem: "pool",
			Name:      "ops_total",
			Help:      "Pool mutating operations by outcome.",
		}, []string{"op", "outcome"}),
		tickCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clpool",
			Subsystem: "pool",
			Name:      "initialized_ticks",
			Help:      "Number of ticks currently holding liquidity.",
		}),
	}
	reg.MustRegister(m.opDuration, m.opsTotal, m.tickCount)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if err != nil {
		m.opsTotal.WithLabelValues(op, "error").Inc()
		return
	}
	m.opsTotal.WithLabelValues(op, "ok").Inc()
}
