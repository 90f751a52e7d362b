package store

import (
	"context"
	"errors"
	"testing"

	"fleetwatch-backend/internal/models"
)

func intPtr(n int) *int { return &n }

func TestMemoryCreateAlertUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	critical := models.Alert{ID: "a1", DriverID: "d1", StopID: "s1", Type: models.AlertTypeCritical, Timestamp: 100}
	if err := m.CreateAlert(ctx, &critical); err != nil {
		t.Fatalf("first critical: %v", err)
	}

	dup := critical
	dup.ID = "a2"
	if err := m.CreateAlert(ctx, &dup); !errors.Is(err, ErrDuplicateAlert) {
		t.Fatalf("second critical for same stop: err = %v, want ErrDuplicateAlert", err)
	}

	// Same type for a different stop is a fresh alert.
	other := critical
	other.ID = "a3"
	other.StopID = "s2"
	if err := m.CreateAlert(ctx, &other); err != nil {
		t.Fatalf("critical for another stop: %v", err)
	}
}

func TestMemoryReminderBucketsAreDistinct(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r30 := models.Alert{ID: "r1", DriverID: "d1", StopID: "s1", Type: models.AlertTypeReminder, MinuteBucket: intPtr(30), Timestamp: 100}
	if err := m.CreateAlert(ctx, &r30); err != nil {
		t.Fatalf("bucket 30: %v", err)
	}

	r60 := models.Alert{ID: "r2", DriverID: "d1", StopID: "s1", Type: models.AlertTypeReminder, MinuteBucket: intPtr(60), Timestamp: 130}
	if err := m.CreateAlert(ctx, &r60); err != nil {
		t.Fatalf("bucket 60: %v", err)
	}

	dup := models.Alert{ID: "r3", DriverID: "d1", StopID: "s1", Type: models.AlertTypeReminder, MinuteBucket: intPtr(30), Timestamp: 140}
	if err := m.CreateAlert(ctx, &dup); !errors.Is(err, ErrDuplicateAlert) {
		t.Fatalf("repeat bucket 30: err = %v, want ErrDuplicateAlert", err)
	}
}

func TestMemoryListAlertsFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i, a := range []models.Alert{
		{ID: "a1", DriverID: "d1", StopID: "s1", Type: models.AlertTypeWarning, Timestamp: 100},
		{ID: "a2", DriverID: "d1", StopID: "s1", Type: models.AlertTypeCritical, Timestamp: 200},
		{ID: "a3", DriverID: "d2", StopID: "s2", Type: models.AlertTypeCritical, Timestamp: 300},
	} {
		if err := m.CreateAlert(ctx, &a); err != nil {
			t.Fatalf("alert %d: %v", i, err)
		}
	}

	all, err := m.ListAlerts(ctx, AlertFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != "a3" {
		t.Errorf("newest first: got %s", all[0].ID)
	}

	if err := m.MarkAlertRead(ctx, "a2"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ := m.ListAlerts(ctx, AlertFilter{UnreadOnly: true})
	if len(unread) != 2 {
		t.Errorf("unread len = %d, want 2", len(unread))
	}

	limited, _ := m.ListAlerts(ctx, AlertFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limited len = %d, want 1", len(limited))
	}
}

func TestMemoryMarkAlertReadNotFound(t *testing.T) {
	m := NewMemory()
	if err := m.MarkAlertRead(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryMarkAllReadAndClear(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := models.Alert{ID: "a1", DriverID: "d1", StopID: "s1", Type: models.AlertTypeWarning, Timestamp: 100}
	if err := m.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.MarkAllRead(ctx, ""); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	unread, _ := m.ListAlerts(ctx, AlertFilter{UnreadOnly: true})
	if len(unread) != 0 {
		t.Errorf("unread after mark all = %d, want 0", len(unread))
	}

	if err := m.ClearHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	all, _ := m.ListAlerts(ctx, AlertFilter{})
	if len(all) != 0 {
		t.Errorf("alerts after clear = %d, want 0", len(all))
	}
}
