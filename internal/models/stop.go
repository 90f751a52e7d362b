package models

// StopType categorizes a stop and decides which detention thresholds apply.
type StopType string

const (
	StopTypeRegular   StopType = "regular"
	StopTypeMultiStop StopType = "multi-stop"
	StopTypeRail      StopType = "rail"
	StopTypeNoBilling StopType = "no-billing"
	StopTypeDropHook  StopType = "drop-hook"
)

// Stop represents a driver's arrival at a location. A driver has at most one
// open stop (departure_time NULL) at a time. Setting departure_time closes the
// stop and freezes its final detention figures.
type Stop struct {
	ID                    string   `json:"id" db:"id"`
	DriverID              string   `json:"driver_id" db:"driver_id"`
	Location              string   `json:"location" db:"location"`
	Latitude              *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude             *float64 `json:"longitude,omitempty" db:"longitude"`
	StopType              StopType `json:"stop_type" db:"stop_type"`
	AppointmentTime       *int64   `json:"appointment_time" db:"appointment_time"`
	DepartureTime         *int64   `json:"departure_time" db:"departure_time"`
	FinalDetentionMinutes *int     `json:"final_detention_minutes" db:"final_detention_minutes"`
	FinalDetentionCost    *float64 `json:"final_detention_cost" db:"final_detention_cost"`
	Timestamp             int64    `json:"timestamp" db:"timestamp"` // arrival time (epoch seconds)
	CreatedAt             int64    `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the driver is still at this stop.
func (s *Stop) IsOpen() bool {
	return s.DepartureTime == nil
}
