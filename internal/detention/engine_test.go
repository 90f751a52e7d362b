package detention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/store"
)

func testDriver() models.Driver {
	return models.Driver{ID: "driver-1", Name: "Marcus Webb", TruckNumber: "4412", Dispatcher: "dispatch@fleetwatch.local", IsActive: true}
}

func testEngine() (*Engine, *store.Memory) {
	mem := store.NewMemory()
	return NewEngine(mem, NewClassifier(RatePerHour(DefaultRatePerHour))), mem
}

func alertTypes(alerts []models.Alert) map[models.AlertType]int {
	out := map[models.AlertType]int{}
	for _, a := range alerts {
		out[a.Type]++
	}
	return out
}

func TestEvaluateNothingInsideFreeTime(t *testing.T) {
	e, _ := testEngine()
	created, err := e.Evaluate(context.Background(), testDriver(), stopAt(models.StopTypeRegular, testBase), testBase.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created %d alerts inside free time, want 0", len(created))
	}
}

func TestEvaluateWarningOnce(t *testing.T) {
	e, _ := testEngine()
	ctx := context.Background()
	stop := stopAt(models.StopTypeRegular, testBase)

	created, err := e.Evaluate(ctx, testDriver(), stop, testBase.Add(95*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 || created[0].Type != models.AlertTypeWarning {
		t.Fatalf("first tick created %v, want one warning", alertTypes(created))
	}

	// Identical state on the next tick creates nothing.
	created, err = e.Evaluate(ctx, testDriver(), stop, testBase.Add(96*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("second tick created %v, want nothing", alertTypes(created))
	}
}

func TestEvaluateCriticalAtDetentionOnset(t *testing.T) {
	e, mem := testEngine()
	ctx := context.Background()
	stop := stopAt(models.StopTypeRegular, testBase)

	created, err := e.Evaluate(ctx, testDriver(), stop, testBase.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 || created[0].Type != models.AlertTypeCritical {
		t.Fatalf("created %v, want one critical", alertTypes(created))
	}
	if created[0].StopID != stop.ID {
		t.Errorf("alert stopID = %q, want %q", created[0].StopID, stop.ID)
	}

	created, err = e.Evaluate(ctx, testDriver(), stop, testBase.Add(2*time.Hour+5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("second tick created %v, want nothing", alertTypes(created))
	}

	all, _ := mem.ListStopAlerts(ctx, "driver-1", stop.ID)
	if got := alertTypes(all); got[models.AlertTypeCritical] != 1 {
		t.Errorf("store holds %d criticals, want 1", got[models.AlertTypeCritical])
	}
}

func TestEvaluateReminderBuckets(t *testing.T) {
	// Tick through a detention that reaches 95 minutes. Reminders land at the
	// 30, 60 and 90 minute marks and nowhere else.
	e, mem := testEngine()
	ctx := context.Background()
	stop := stopAt(models.StopTypeRegular, testBase)
	driver := testDriver()

	for _, offset := range []time.Duration{
		120 * time.Minute, // onset
		125 * time.Minute,
		150 * time.Minute, // 30 min in
		155 * time.Minute,
		180 * time.Minute, // 60 min in
		215 * time.Minute, // 95 min in, still bucket 90
	} {
		if _, err := e.Evaluate(ctx, driver, stop, testBase.Add(offset)); err != nil {
			t.Fatalf("tick at %v: %v", offset, err)
		}
	}

	all, _ := mem.ListStopAlerts(ctx, driver.ID, stop.ID)
	buckets := map[int]bool{}
	for _, a := range all {
		if a.Type == models.AlertTypeReminder {
			if a.MinuteBucket == nil {
				t.Fatal("reminder without a minute bucket")
			}
			if buckets[*a.MinuteBucket] {
				t.Fatalf("duplicate reminder for bucket %d", *a.MinuteBucket)
			}
			buckets[*a.MinuteBucket] = true
		}
	}
	for _, want := range []int{30, 60, 90} {
		if !buckets[want] {
			t.Errorf("missing reminder for bucket %d", want)
		}
	}
	if buckets[120] {
		t.Error("bucket 120 fired at only 95 minutes of detention")
	}
	if got := alertTypes(all); got[models.AlertTypeCritical] != 1 {
		t.Errorf("store holds %d criticals, want 1", got[models.AlertTypeCritical])
	}
}

func TestEvaluateSkippedTicksCollapseToOneReminder(t *testing.T) {
	// If the monitor was down from onset until 95 minutes of detention, one
	// catch-up reminder fires for the current bucket rather than a backlog.
	e, mem := testEngine()
	ctx := context.Background()
	stop := stopAt(models.StopTypeRegular, testBase)

	created, err := e.Evaluate(ctx, testDriver(), stop, testBase.Add(215*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := alertTypes(created)
	if got[models.AlertTypeCritical] != 1 || got[models.AlertTypeReminder] != 1 {
		t.Fatalf("created %v, want one critical and one reminder", got)
	}

	all, _ := mem.ListStopAlerts(ctx, "driver-1", stop.ID)
	for _, a := range all {
		if a.Type == models.AlertTypeReminder && *a.MinuteBucket != 90 {
			t.Errorf("reminder bucket = %d, want 90", *a.MinuteBucket)
		}
	}
}

func TestEvaluateConcurrentTicksSingleCritical(t *testing.T) {
	e, mem := testEngine()
	ctx := context.Background()
	stop := stopAt(models.StopTypeRegular, testBase)
	driver := testDriver()
	now := testBase.Add(130 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Evaluate(ctx, driver, stop, now); err != nil {
				t.Errorf("concurrent evaluate: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := mem.ListStopAlerts(ctx, driver.ID, stop.ID)
	if got := alertTypes(all); got[models.AlertTypeCritical] != 1 {
		t.Errorf("store holds %d criticals after concurrent ticks, want 1", got[models.AlertTypeCritical])
	}
}

func TestEvaluateConfigErrorPropagates(t *testing.T) {
	e, _ := testEngine()
	_, err := e.Evaluate(context.Background(), testDriver(), stopAt(models.StopType("mystery"), testBase), testBase.Add(5*time.Hour))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

type failingAlertStore struct {
	listErr   error
	createErr error
}

func (f *failingAlertStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	return f.createErr
}

func (f *failingAlertStore) ListStopAlerts(ctx context.Context, driverID, stopID string) ([]models.Alert, error) {
	return nil, f.listErr
}

func TestEvaluateListFailurePropagates(t *testing.T) {
	e := NewEngine(&failingAlertStore{listErr: errors.New("connection reset")}, NewClassifier(RatePerHour(DefaultRatePerHour)))
	_, err := e.Evaluate(context.Background(), testDriver(), stopAt(models.StopTypeRegular, testBase), testBase.Add(3*time.Hour))
	if err == nil {
		t.Fatal("expected error when listing alerts fails")
	}
}

func TestEvaluateCreateFailureDropsAlert(t *testing.T) {
	// A write failure leaves the alert uncreated but does not fail the tick;
	// the next tick retries from persisted state.
	e := NewEngine(&failingAlertStore{createErr: errors.New("connection reset")}, NewClassifier(RatePerHour(DefaultRatePerHour)))
	created, err := e.Evaluate(context.Background(), testDriver(), stopAt(models.StopTypeRegular, testBase), testBase.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created %d alerts despite write failures, want 0", len(created))
	}
}

func TestEvaluateDuplicateFromStoreSwallowed(t *testing.T) {
	e := NewEngine(&failingAlertStore{createErr: store.ErrDuplicateAlert}, NewClassifier(RatePerHour(DefaultRatePerHour)))
	created, err := e.Evaluate(context.Background(), testDriver(), stopAt(models.StopTypeRegular, testBase), testBase.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created %d alerts, want 0 when the store reports duplicates", len(created))
	}
}
