package detention

import (
	"time"

	"fleetwatch-backend/internal/models"
)

// Driver status values shown on the dashboard. "critical" is deliberately not
// a status: it is an alert type, and a driver in detention stays in
// StatusDetention no matter which alerts have fired for the stop.
const (
	StatusActive    = "active"    // no open stop, driving or on standby
	StatusAtStop    = "at-stop"   // at a stop, inside free time
	StatusWarning   = "warning"   // approaching detention
	StatusDetention = "detention" // past the free-time threshold
	StatusCompleted = "completed" // recently departed a stop
)

// DefaultCompletedWindow is how long a closed stop keeps the driver in
// "completed" before reverting to "active".
const DefaultCompletedWindow = 30 * time.Minute

// RateFunc computes the detention cost for minutes accrued at a stop type.
type RateFunc func(st models.StopType, minutes int) float64

// Classification is the computed view of a driver's current stop.
type Classification struct {
	Status           string
	DetentionMinutes int
	DetentionCost    float64
	TimeToDetention  *int // minutes until detention, nil once in detention or without a stop
	IsInDetention    bool
}

// Classifier derives a driver's status and detention math from the current
// stop. It is a pure read of current state and safe to call concurrently.
type Classifier struct {
	Rate            RateFunc
	CompletedWindow time.Duration
}

func NewClassifier(rate RateFunc) *Classifier {
	return &Classifier{Rate: rate, CompletedWindow: DefaultCompletedWindow}
}

// Classify computes the status for a driver's most recent stop, or nil for a
// driver with no stop on record.
//
// The detention clock starts at the later of arrival and appointment time:
// arriving early does not start billing. Negative elapsed time from clock
// skew clamps to zero and never raises detention.
//
// An unknown stop type returns the fallback "at-stop" classification together
// with a *ConfigError so the caller can skip alert evaluation for this tick.
func (c *Classifier) Classify(stop *models.Stop, now time.Time) (Classification, error) {
	if stop == nil {
		return Classification{Status: StatusActive}, nil
	}

	if stop.DepartureTime != nil {
		window := c.CompletedWindow
		if window <= 0 {
			window = DefaultCompletedWindow
		}
		if now.Sub(time.Unix(*stop.DepartureTime, 0)) <= window {
			return Classification{Status: StatusCompleted}, nil
		}
		return Classification{Status: StatusActive}, nil
	}

	th, err := ThresholdsFor(stop.StopType)
	if err != nil {
		return Classification{Status: StatusAtStop}, err
	}

	elapsed := now.Sub(clockStart(stop))
	if elapsed < 0 {
		elapsed = 0
	}

	if elapsed >= th.DetentionAfter {
		mins := int((elapsed - th.DetentionAfter).Minutes())
		cls := Classification{
			Status:           StatusDetention,
			DetentionMinutes: mins,
			IsInDetention:    true,
		}
		if c.Rate != nil {
			cls.DetentionCost = c.Rate(stop.StopType, mins)
		}
		return cls, nil
	}

	remaining := int((th.DetentionAfter - elapsed).Minutes())
	if th.HasWarning && elapsed >= th.DetentionAfter-th.WarningLead {
		return Classification{Status: StatusWarning, TimeToDetention: &remaining}, nil
	}
	return Classification{Status: StatusAtStop, TimeToDetention: &remaining}, nil
}

// clockStart returns when the detention clock begins for a stop: the later of
// arrival and appointment time. A missing appointment means the clock starts
// at arrival.
func clockStart(stop *models.Stop) time.Time {
	arrival := time.Unix(stop.Timestamp, 0)
	if stop.AppointmentTime != nil {
		if appt := time.Unix(*stop.AppointmentTime, 0); appt.After(arrival) {
			return appt
		}
	}
	return arrival
}
