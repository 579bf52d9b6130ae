package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks push channel activity
type Metrics struct {
	subscribers prometheus.Gauge
	signals     *prometheus.CounterVec
	heartbeats  prometheus.Counter
}

// NewMetrics registers the push channel collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "splitthebill",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Open bill event streams.",
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitthebill",
			Subsystem: "events",
			Name:      "signals_total",
			Help:      "Signals published to bill streams, by kind.",
		}, []string{"kind"}),
		heartbeats: f.NewCounter(prometheus.CounterOpts{
			Namespace: "splitthebill",
			Subsystem: "events",
			Name:      "heartbeats_total",
			Help:      "Heartbeat comments written to bill streams.",
		}),
	}
}
