package store

import (
	"context"
	"errors"

	"fleetwatch-backend/internal/models"
)

// ErrDuplicateAlert is returned by CreateAlert when an equivalent alert
// already exists for the stop. Callers treat it as "already handled".
var ErrDuplicateAlert = errors.New("alert already exists for this stop")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DriverStop pairs a roster driver with their most recent stop. Stop is nil
// for a driver with no stops on record.
type DriverStop struct {
	Driver models.Driver
	Stop   *models.Stop
}

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	UnreadOnly bool
	Dispatcher string // filter to one dispatcher's drivers; empty for all
	Limit      int
}

// AlertStore persists alerts. Implementations must enforce at most one
// warning and one critical alert per (driver_id, stop_id), and at most one
// reminder per (driver_id, stop_id, minute_bucket), surfacing violations as
// ErrDuplicateAlert. That constraint, not in-memory state, is what keeps
// concurrent evaluation ticks from double-firing.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListStopAlerts(ctx context.Context, driverID, stopID string) ([]models.Alert, error)
	ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error)
	MarkAlertRead(ctx context.Context, alertID string) error
	MarkAllRead(ctx context.Context, dispatcher string) error
	ClearHistory(ctx context.Context) error
}

// FleetStore lists the drivers an evaluation tick walks over.
type FleetStore interface {
	ListActiveDriversWithStops(ctx context.Context) ([]DriverStop, error)
}
