package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_tenant_conn_cache_hits_total",
		Help: "Tenant connection lookups served from the cache",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_tenant_conn_cache_misses_total",
		Help: "Tenant connection lookups that required a dial",
	})

	dialDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_db_dial_duration_seconds",
		Help:    "Duration of database connection attempts including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "result"})

	openConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clinic_tenant_connections_open",
		Help: "Number of cached tenant connections",
	})
)

func observeDial(tenant string, d time.Duration, err error) {
	kind := "tenant"
	if tenant == "" {
		kind = "main"
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	dialDuration.WithLabelValues(kind, result).Observe(d.Seconds())
}
