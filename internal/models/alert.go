package models

// AlertType is the kind of alert raised for a stop.
type AlertType string

const (
	AlertTypeWarning  AlertType = "warning"  // approaching detention
	AlertTypeCritical AlertType = "critical" // detention onset, fires once per stop
	AlertTypeReminder AlertType = "reminder" // every 30 minutes of detention
)

// Alert is a notification record created by the alert engine. Only is_read is
// ever mutated after creation; closing a stop leaves its alerts as history.
//
// StopID anchors alert identity: the store enforces at most one warning and
// one critical per (driver_id, stop_id), and at most one reminder per
// (driver_id, stop_id, minute_bucket). AppointmentTime is carried for display
// and filtering but can be NULL, so it cannot serve as the uniqueness key.
type Alert struct {
	ID              string    `json:"id" db:"id"`
	DriverID        string    `json:"driver_id" db:"driver_id"`
	StopID          string    `json:"stop_id" db:"stop_id"`
	Type            AlertType `json:"type" db:"type"`
	Message         string    `json:"message" db:"message"`
	IsRead          bool      `json:"is_read" db:"is_read"`
	AppointmentTime *int64    `json:"appointment_time" db:"appointment_time"`
	MinuteBucket    *int      `json:"minute_bucket,omitempty" db:"minute_bucket"` // reminders only
	Timestamp       int64     `json:"timestamp" db:"timestamp"`
}

// AlertEvent is the wire shape pushed to connected dashboard clients.
type AlertEvent struct {
	Type  string `json:"type"` // always "new_alert"
	Alert Alert  `json:"alert"`
}

// FCMToken represents a Firebase Cloud Messaging token for a dispatcher device.
type FCMToken struct {
	ID         int    `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios", "android" or "web"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}
