package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts split-test outcomes. Methods are safe on a nil receiver.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	Completed      prometheus.Counter
	LostDecisions  prometheus.Counter
	SampleSizeHist prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_splittest_decisions_total",
			Help: "Split tests decided, by winning variant",
		}, []string{"winner"}),
		Completed: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_splittest_completed_total",
			Help: "Split tests whose remainder job reached a terminal status",
		}),
		LostDecisions: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_splittest_lost_decisions_total",
			Help: "Decide calls that lost the outcome race and cancelled their remainder job",
		}),
		SampleSizeHist: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_splittest_sample_size",
			Help:    "Per-variant sample size of created split tests",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
}

func (m *Metrics) IncrementDecision(winner string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(winner).Inc()
}

func (m *Metrics) IncrementCompleted() {
	if m == nil {
		return
	}
	m.Completed.Inc()
}

func (m *Metrics) IncrementLostDecision() {
	if m == nil {
		return
	}
	m.LostDecisions.Inc()
}

func (m *Metrics) ObserveSampleSize(n int) {
	if m == nil {
		return
	}
	m.SampleSizeHist.Observe(float64(n))
}
