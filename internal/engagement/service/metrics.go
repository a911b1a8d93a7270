package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_engagement_events_total",
			Help: "Engagement events received, by kind and whether they were new",
		}, []string{"kind", "fresh"}),
	}
}

func (m *Metrics) observe(kind string, fresh bool) {
	if m == nil {
		return
	}
	label := "false"
	if fresh {
		label = "true"
	}
	m.Events.WithLabelValues(kind, label).Inc()
}
