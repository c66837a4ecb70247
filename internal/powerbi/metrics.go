package powerbi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// UpstreamRequests counts calls to the identity provider and the
	// reporting API by endpoint and outcome (ok, error).
	UpstreamRequests *prometheus.CounterVec

	// CacheLookups counts credential cache lookups by cache (access_token,
	// embed_config) and result (hit, miss).
	CacheLookups *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Unregistered metrics still work, they just are not exported.
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		UpstreamRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "powerbi_upstream_requests_total",
			Help: "Total number of requests to the Power BI identity and reporting APIs.",
		}, []string{"endpoint", "outcome"}),

		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "powerbi_cache_lookups_total",
			Help: "Total number of credential cache lookups.",
		}, []string{"cache", "result"}),
	}
}

func (m *Metrics) upstream(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) lookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}
