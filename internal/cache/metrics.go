package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache outcomes per namespace. A nil *Metrics records nothing.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Stale         *prometheus.CounterVec
	Computes      *prometheus.CounterVec
	Bypasses      *prometheus.CounterVec
	ProviderError *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Purged        prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_hits_total",
			Help: "Cache reads served from a valid entry",
		}, []string{"namespace"}),
		Misses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_misses_total",
			Help: "Cache reads that found no usable entry",
		}, []string{"namespace"}),
		Stale: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_stale_total",
			Help: "Entries rejected because a group epoch moved",
		}, []string{"namespace"}),
		Computes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_computes_total",
			Help: "Read-through computations executed",
		}, []string{"namespace"}),
		Bypasses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_bypass_total",
			Help: "Reads that skipped the cache because epochs were unavailable",
		}, []string{"namespace"}),
		ProviderError: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_provider_errors_total",
			Help: "Provider failures degraded to a miss or dropped write",
		}, []string{"namespace", "op"}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_cache_invalidations_total",
			Help: "Group epoch bumps",
		}, []string{"group"}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_cache_purged_total",
			Help: "Expired rows removed by the janitor",
		}),
	}
}

func (m *Metrics) hit(ns string) {
	if m != nil {
		m.Hits.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) miss(ns string) {
	if m != nil {
		m.Misses.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) stale(ns string) {
	if m != nil {
		m.Stale.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) compute(ns string) {
	if m != nil {
		m.Computes.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) bypass(ns string) {
	if m != nil {
		m.Bypasses.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) providerError(ns, op string) {
	if m != nil {
		m.ProviderError.WithLabelValues(ns, op).Inc()
	}
}

// groupLabel collapses per-document groups so label cardinality stays bounded.
func groupLabel(group string) string {
	if len(group) > 4 && group[:4] == "doc:" {
		return "doc"
	}
	return group
}

func (m *Metrics) invalidated(group string) {
	if m != nil {
		m.Invalidations.WithLabelValues(groupLabel(group)).Inc()
	}
}

func (m *Metrics) purged(n int64) {
	if m != nil && n > 0 {
		m.Purged.Add(float64(n))
	}
}
