package detention

import "fleetwatch-backend/internal/models"

// DefaultRatePerHour is the detention rate applied when settings carry none.
const DefaultRatePerHour = 75.0

// RatePerHour returns a RateFunc charging a flat hourly rate for detention
// minutes. No-billing stops accrue detention time but never cost.
func RatePerHour(dollarsPerHour float64) RateFunc {
	return func(st models.StopType, minutes int) float64 {
		if st == models.StopTypeNoBilling || minutes <= 0 {
			return 0
		}
		return float64(minutes) / 60 * dollarsPerHour
	}
}
