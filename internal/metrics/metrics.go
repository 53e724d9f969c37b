// Package metrics expone la instrumentación Prometheus del motor.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_checks_total",
		Help: "Checks de permiso evaluados, por resultado",
	}, []string{"result"}) // result: allowed|denied|error

	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_mutations_total",
		Help: "Mutaciones de autorización, por tipo y resultado",
	}, []string{"kind", "result"})

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_cache_hits_total",
		Help: "Hits del permission cache",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_cache_misses_total",
		Help: "Misses del permission cache",
	})

	sweepRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_sweep_removed_total",
		Help: "Grants temporales removidos físicamente por el sweep",
	})

	auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_audit_dropped_total",
		Help: "Entradas de auditoría best-effort descartadas (cola llena o sink caído)",
	})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests HTTP procesadas",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Register registra los collectors y devuelve el handler para /metrics.
// Idempotente: llamadas posteriores reutilizan el primer registro.
func Register(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		reg.MustRegister(
			checksTotal,
			mutationsTotal,
			cacheHitsTotal,
			cacheMissesTotal,
			sweepRemovedTotal,
			auditDroppedTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Los observadores son seguros aunque Register no haya corrido:
// los vecs existen desde el init del paquete.

func CheckEvaluated(result string)           { checksTotal.WithLabelValues(result).Inc() }
func MutationApplied(kind, result string)    { mutationsTotal.WithLabelValues(kind, result).Inc() }
func CacheHit()                              { cacheHitsTotal.Inc() }
func CacheMiss()                             { cacheMissesTotal.Inc() }
func SweepRemoved(n int)                     { sweepRemovedTotal.Add(float64(n)) }
func AuditDropped()                          { auditDroppedTotal.Inc() }

// HTTPObserved registra una request HTTP terminada.
func HTTPObserved(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
