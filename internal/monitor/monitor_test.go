package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetwatch-backend/internal/detention"
	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/store"
)

type recordNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recordNotifier) NotifyNewAlert(alert models.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
}

func (r *recordNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func openStop(id, driverID string, st models.StopType, arrival time.Time) *models.Stop {
	appt := arrival.Unix()
	return &models.Stop{
		ID:              id,
		DriverID:        driverID,
		Location:        "Dallas, TX",
		StopType:        st,
		AppointmentTime: &appt,
		Timestamp:       arrival.Unix(),
	}
}

func testMonitor(mem *store.Memory, n Notifier) *Monitor {
	engine := detention.NewEngine(mem, detention.NewClassifier(detention.RatePerHour(detention.DefaultRatePerHour)))
	return &Monitor{
		Fleet:    mem,
		Engine:   engine,
		Notifier: n,
		Interval: time.Second,
		Stop:     make(chan struct{}),
	}
}

func TestProcessOnceCreatesAndNotifies(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetDrivers([]store.DriverStop{
		{
			Driver: models.Driver{ID: "d1", Name: "Marcus Webb", TruckNumber: "4412", IsActive: true},
			Stop:   openStop("s1", "d1", models.StopTypeRegular, base),
		},
		{
			Driver: models.Driver{ID: "d2", Name: "Elena Ortiz", TruckNumber: "4413", IsActive: true},
			Stop:   openStop("s2", "d2", models.StopTypeRegular, base.Add(2*time.Hour)),
		},
		{
			Driver: models.Driver{ID: "d3", Name: "Ray Chen", TruckNumber: "4414", IsActive: true},
		},
	})

	n := &recordNotifier{}
	m := testMonitor(mem, n)

	// d1 is 10 minutes into detention, d2 is inside free time, d3 has no stop.
	created := m.ProcessOnce(context.Background(), base.Add(130*time.Minute))
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if n.count() != 1 {
		t.Fatalf("notified = %d, want 1", n.count())
	}
	if n.alerts[0].Type != models.AlertTypeCritical || n.alerts[0].DriverID != "d1" {
		t.Errorf("notified alert = %s for %s, want critical for d1", n.alerts[0].Type, n.alerts[0].DriverID)
	}

	// Same state is a no-op on the next tick.
	if created := m.ProcessOnce(context.Background(), base.Add(131*time.Minute)); created != 0 {
		t.Errorf("second tick created = %d, want 0", created)
	}
}

func TestProcessOnceSkipsClosedStops(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	departed := base.Add(3 * time.Hour).Unix()
	stop := openStop("s1", "d1", models.StopTypeRegular, base)
	stop.DepartureTime = &departed

	mem := store.NewMemory()
	mem.SetDrivers([]store.DriverStop{
		{Driver: models.Driver{ID: "d1", Name: "Marcus Webb", IsActive: true}, Stop: stop},
	})

	n := &recordNotifier{}
	m := testMonitor(mem, n)
	if created := m.ProcessOnce(context.Background(), base.Add(4*time.Hour)); created != 0 {
		t.Fatalf("created = %d alerts for a closed stop, want 0", created)
	}
	if n.count() != 0 {
		t.Errorf("notified = %d, want 0", n.count())
	}
}

func TestProcessOnceContinuesPastBadDriver(t *testing.T) {
	// A driver with an unrecognized stop type must not block evaluation of the
	// drivers after it in the roster.
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetDrivers([]store.DriverStop{
		{
			Driver: models.Driver{ID: "d1", Name: "Bad Config", IsActive: true},
			Stop:   openStop("s1", "d1", models.StopType("mystery"), base),
		},
		{
			Driver: models.Driver{ID: "d2", Name: "Elena Ortiz", IsActive: true},
			Stop:   openStop("s2", "d2", models.StopTypeMultiStop, base),
		},
	})

	n := &recordNotifier{}
	m := testMonitor(mem, n)

	// d2's multi-stop went into detention at 60 minutes.
	created := m.ProcessOnce(context.Background(), base.Add(70*time.Minute))
	if created != 1 {
		t.Fatalf("created = %d, want 1 from the healthy driver", created)
	}
	if n.alerts[0].DriverID != "d2" {
		t.Errorf("notified driver = %s, want d2", n.alerts[0].DriverID)
	}
}

func TestProcessOnceNilNotifier(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetDrivers([]store.DriverStop{
		{
			Driver: models.Driver{ID: "d1", Name: "Marcus Webb", IsActive: true},
			Stop:   openStop("s1", "d1", models.StopTypeDropHook, base),
		},
	})

	m := testMonitor(mem, nil)
	if created := m.ProcessOnce(context.Background(), base.Add(45*time.Minute)); created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
}

func TestManualAndTickerRefreshDoNotDouble(t *testing.T) {
	// A dashboard refresh racing the background tick relies on store
	// uniqueness: run both back to back and expect one alert total.
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetDrivers([]store.DriverStop{
		{
			Driver: models.Driver{ID: "d1", Name: "Marcus Webb", IsActive: true},
			Stop:   openStop("s1", "d1", models.StopTypeRegular, base),
		},
	})

	n := &recordNotifier{}
	m := testMonitor(mem, n)
	now := base.Add(125 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.ProcessOnce(context.Background(), now)
		}()
	}
	wg.Wait()

	if n.count() != 1 {
		t.Fatalf("notified = %d across racing refreshes, want 1", n.count())
	}
}
