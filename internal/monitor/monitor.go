package monitor

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"fleetwatch-backend/internal/detention"
	"fleetwatch-backend/internal/metrics"
	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/store"
)

// Notifier delivers a persisted alert to connected clients. Delivery is
// fire-and-forget: persist first, notify after, never retry a failed delivery
// (the unread alert is still visible on the next poll).
type Notifier interface {
	NotifyNewAlert(alert models.Alert)
}

// Monitor periodically re-evaluates every active driver's stop and raises the
// alerts that are due. Manual dashboard refreshes run the same ProcessOnce;
// the store's uniqueness constraints make the two safe to race.
type Monitor struct {
	Fleet    store.FleetStore
	Engine   *detention.Engine
	Notifier Notifier
	Interval time.Duration
	Stop     chan struct{}
}

func New(fleet store.FleetStore, engine *detention.Engine, notifier Notifier) *Monitor {
	interval := 10 * time.Second
	if v := os.Getenv("MONITOR_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &Monitor{
		Fleet:    fleet,
		Engine:   engine,
		Notifier: notifier,
		Interval: interval,
		Stop:     make(chan struct{}),
	}
}

// Start runs the evaluation loop until Stop is closed.
func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.Stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				m.ProcessOnce(ctx, time.Now())
				cancel()
			}
		}
	}()
}

// ProcessOnce walks the active fleet once. A failure for one driver is logged
// and counted but never aborts the remaining evaluations. Returns the number
// of alerts created.
func (m *Monitor) ProcessOnce(ctx context.Context, now time.Time) int {
	metrics.EvaluationTicks.Inc()

	drivers, err := m.Fleet.ListActiveDriversWithStops(ctx)
	if err != nil {
		log.Printf("❌ Monitor: failed to list drivers: %v", err)
		metrics.EvaluationErrors.WithLabelValues("fleet").Inc()
		return 0
	}

	createdTotal := 0
	inDetention := 0
	for _, ds := range drivers {
		if ds.Stop == nil || !ds.Stop.IsOpen() {
			continue
		}

		if cls, err := m.Engine.Classifier.Classify(ds.Stop, now); err == nil && cls.IsInDetention {
			inDetention++
		}

		created, err := m.Engine.Evaluate(ctx, ds.Driver, ds.Stop, now)
		if err != nil {
			var cfgErr *detention.ConfigError
			if errors.As(err, &cfgErr) {
				log.Printf("⚠️  Monitor: driver %s has %v, skipping alert evaluation", ds.Driver.ID, cfgErr)
				metrics.EvaluationErrors.WithLabelValues("config").Inc()
			} else {
				log.Printf("❌ Monitor: evaluation failed for driver %s: %v", ds.Driver.ID, err)
				metrics.EvaluationErrors.WithLabelValues("store").Inc()
			}
			continue
		}

		for _, alert := range created {
			metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
			if m.Notifier != nil {
				m.Notifier.NotifyNewAlert(alert)
			}
		}
		createdTotal += len(created)
	}

	metrics.DriversInDetention.Set(float64(inDetention))
	if createdTotal > 0 {
		log.Printf("🔔 Monitor: created %d alert(s) across %d driver(s)", createdTotal, len(drivers))
	}
	return createdTotal
}
