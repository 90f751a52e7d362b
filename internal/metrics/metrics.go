package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the server.
	Registry = prometheus.NewRegistry()

	// EvaluationTicks counts monitor evaluation passes.
	EvaluationTicks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "detention_evaluation_ticks_total", Help: "Monitor evaluation passes over the fleet."},
	)
	// EvaluationErrors counts per-driver evaluation failures by cause.
	EvaluationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "detention_evaluation_errors_total", Help: "Per-driver evaluation failures."},
		[]string{"cause"},
	)
	// AlertsCreated counts alerts created by type.
	AlertsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "detention_alerts_created_total", Help: "Alerts created by the engine, by type."},
		[]string{"type"},
	)
	// DriversInDetention gauges how many drivers the last tick found in detention.
	DriversInDetention = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "detention_drivers_in_detention", Help: "Drivers in detention as of the last tick."},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(EvaluationTicks)
		Registry.MustRegister(EvaluationErrors)
		Registry.MustRegister(AlertsCreated)
		Registry.MustRegister(DriversInDetention)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
