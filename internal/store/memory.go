package store

import (
	"context"
	"sort"
	"sync"

	"fleetwatch-backend/internal/models"
)

// Memory is an in-process implementation of AlertStore and FleetStore used by
// tests. It enforces the same alert uniqueness rules the Postgres schema does.
type Memory struct {
	mu      sync.Mutex
	alerts  []models.Alert
	drivers []DriverStop
}

func NewMemory() *Memory {
	return &Memory{}
}

// SetDrivers replaces the roster returned by ListActiveDriversWithStops.
func (m *Memory) SetDrivers(drivers []DriverStop) {
	m.mu.Lock()
	m.drivers = drivers
	m.mu.Unlock()
}

func (m *Memory) ListActiveDriversWithStops(ctx context.Context) ([]DriverStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DriverStop, len(m.drivers))
	copy(out, m.drivers)
	return out, nil
}

func (m *Memory) CreateAlert(ctx context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.DriverID != alert.DriverID || a.StopID != alert.StopID || a.Type != alert.Type {
			continue
		}
		if alert.Type != models.AlertTypeReminder {
			return ErrDuplicateAlert
		}
		if a.MinuteBucket != nil && alert.MinuteBucket != nil && *a.MinuteBucket == *alert.MinuteBucket {
			return ErrDuplicateAlert
		}
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *Memory) ListStopAlerts(ctx context.Context, driverID, stopID string) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if a.DriverID == driverID && a.StopID == stopID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if f.UnreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) MarkAlertRead(ctx context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == alertID {
			m.alerts[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) MarkAllRead(ctx context.Context, dispatcher string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		m.alerts[i].IsRead = true
	}
	return nil
}

func (m *Memory) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
	return nil
}
