package detention

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/store"

	"github.com/google/uuid"
)

// ReminderInterval is the detention-time spacing between reminder alerts.
const ReminderInterval = 30 // minutes

// AlertStore is the persistence the engine consults and writes through. The
// store must enforce uniqueness of (driver, stop, type) for warning/critical
// alerts and (driver, stop, type, minute_bucket) for reminders, returning
// store.ErrDuplicateAlert on a violation so concurrent ticks cannot double-fire.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListStopAlerts(ctx context.Context, driverID, stopID string) ([]models.Alert, error)
}

// Engine decides which new alerts a driver's current stop warrants. It is
// stateless between ticks: every evaluation re-reads alert history from the
// store, so a failed tick is simply retried by the next one.
type Engine struct {
	Store      AlertStore
	Classifier *Classifier
}

func NewEngine(s AlertStore, c *Classifier) *Engine {
	return &Engine{Store: s, Classifier: c}
}

// Evaluate classifies the stop and creates whatever alerts are due, returning
// the alerts actually created this tick. Calling it again with identical state
// creates nothing. A ConfigError from classification is returned as-is so the
// caller can log and skip the driver for this tick.
func (e *Engine) Evaluate(ctx context.Context, driver models.Driver, stop *models.Stop, now time.Time) ([]models.Alert, error) {
	cls, err := e.Classifier.Classify(stop, now)
	if err != nil {
		return nil, err
	}
	if cls.Status != StatusWarning && !cls.IsInDetention {
		return nil, nil
	}

	existing, err := e.Store.ListStopAlerts(ctx, driver.ID, stop.ID)
	if err != nil {
		return nil, fmt.Errorf("list alerts for stop %s: %w", stop.ID, err)
	}

	var hasWarning, hasCritical bool
	reminderBuckets := map[int]bool{}
	for _, a := range existing {
		switch a.Type {
		case models.AlertTypeWarning:
			hasWarning = true
		case models.AlertTypeCritical:
			hasCritical = true
		case models.AlertTypeReminder:
			if a.MinuteBucket != nil {
				reminderBuckets[*a.MinuteBucket] = true
			}
		}
	}

	var created []models.Alert

	if cls.Status == StatusWarning && !hasWarning && cls.TimeToDetention != nil {
		msg := fmt.Sprintf("%s (truck %s) is approaching detention at %s: %d min remaining",
			driver.Name, driver.TruckNumber, stop.Location, *cls.TimeToDetention)
		created = e.create(ctx, created, newAlert(driver, stop, models.AlertTypeWarning, msg, nil, now))
	}

	if cls.IsInDetention {
		if !hasCritical {
			msg := fmt.Sprintf("%s (truck %s) is now in DETENTION at %s",
				driver.Name, driver.TruckNumber, stop.Location)
			created = e.create(ctx, created, newAlert(driver, stop, models.AlertTypeCritical, msg, nil, now))
		}

		// One reminder per 30-minute boundary of detention time.
		if bucket := (cls.DetentionMinutes / ReminderInterval) * ReminderInterval; bucket >= ReminderInterval && !reminderBuckets[bucket] {
			msg := fmt.Sprintf("%s (truck %s) has been in detention for %d min at %s",
				driver.Name, driver.TruckNumber, cls.DetentionMinutes, stop.Location)
			created = e.create(ctx, created, newAlert(driver, stop, models.AlertTypeReminder, msg, &bucket, now))
		}
	}

	return created, nil
}

// create persists the alert, treating a duplicate-key violation as "another
// tick already created this one" rather than an error. Other store failures
// leave the alert uncreated; the next tick re-evaluates from persisted state.
func (e *Engine) create(ctx context.Context, created []models.Alert, alert models.Alert) []models.Alert {
	if err := e.Store.CreateAlert(ctx, &alert); err != nil {
		if !errors.Is(err, store.ErrDuplicateAlert) {
			log.Printf("failed to create %s alert for driver %s: %v (will retry next tick)",
				alert.Type, alert.DriverID, err)
		}
		return created
	}
	return append(created, alert)
}

func newAlert(driver models.Driver, stop *models.Stop, t models.AlertType, msg string, bucket *int, now time.Time) models.Alert {
	return models.Alert{
		ID:              uuid.NewString(),
		DriverID:        driver.ID,
		StopID:          stop.ID,
		Type:            t,
		Message:         msg,
		AppointmentTime: stop.AppointmentTime,
		MinuteBucket:    bucket,
		Timestamp:       now.Unix(),
	}
}
