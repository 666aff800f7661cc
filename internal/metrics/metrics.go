package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_service_uploads_total",
		Help: "Object-store uploads issued.",
	})
	ObjectDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_service_object_deletes_total",
		Help: "Object-store deletes issued.",
	})
	ReconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_service_reconcile_runs_total",
		Help: "File-set reconciliation runs.",
	})
	ReconcileFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_service_reconcile_failures_total",
		Help: "File-set reconciliation runs that aborted.",
	})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
