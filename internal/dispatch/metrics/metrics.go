package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks batched delivery. All methods are no-ops on a nil receiver.
type Metrics struct {
	Deliveries      *prometheus.CounterVec
	JobsFinished    *prometheus.CounterVec
	AdvanceDuration prometheus.Histogram
	AdvanceConflict prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_dispatch_deliveries_total",
			Help: "Per-recipient delivery outcomes",
		}, []string{"status"}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_dispatch_jobs_finished_total",
			Help: "Jobs reaching a terminal status",
		}, []string{"status"}),
		AdvanceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_dispatch_advance_duration_seconds",
			Help:    "Duration of one Advance call, transport included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AdvanceConflict: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_dispatch_advance_conflicts_total",
			Help: "Advance calls rejected by the optimistic cursor check",
		}),
	}
}

func (m *Metrics) ObserveDeliveries(sent, failed, skipped int) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("sent").Add(float64(sent))
	m.Deliveries.WithLabelValues("failed").Add(float64(failed))
	m.Deliveries.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveAdvance(start time.Time) {
	if m == nil {
		return
	}
	m.AdvanceDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementFinished(status string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.AdvanceConflict.Inc()
}
