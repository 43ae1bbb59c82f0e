package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics метрики relay-сервера.
type Metrics struct {
	rooms            prometheus.Gauge
	members          prometheus.Gauge
	messages         *prometheus.CounterVec
	dropped          *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
}

// NewMetrics регистрирует метрики в reg. nil reg - метрики не публикуются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowsync",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms loaded on this node",
		}),
		members: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowsync",
			Subsystem: "relay",
			Name:      "members",
			Help:      "Connected members on this node",
		}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowsync",
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Protocol messages handled by kind and source",
		}, []string{"kind", "source"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowsync",
			Subsystem: "relay",
			Name:      "dropped_messages_total",
			Help:      "Messages dropped by reason",
		}, []string{"reason"}),
		snapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowsync",
			Subsystem: "relay",
			Name:      "snapshot_save_seconds",
			Help:      "Time spent persisting room snapshots",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
}
