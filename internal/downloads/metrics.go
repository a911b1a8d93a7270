package downloads

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks download counting.
type Metrics struct {
	Recorded       prometheus.Counter
	Failures       *prometheus.CounterVec
	RecordDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_downloads_recorded_total",
			Help: "Downloads successfully counted",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_downloads_failures_total",
			Help: "Downloads that could not be counted, by stage",
		}, []string{"stage"}),
		RecordDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_downloads_record_duration_seconds",
			Help:    "Duration of RecordDownload including cache invalidation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) recorded(start time.Time) {
	if m == nil {
		return
	}
	m.Recorded.Inc()
	m.RecordDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) failed(stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(stage).Inc()
}
