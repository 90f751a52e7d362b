package models

import "database/sql"

// Settings holds the global dashboard defaults. Stop-type-specific thresholds
// in the detention package take precedence over the hour values here.
type Settings struct {
	ID                     int     `json:"id" db:"id"`
	WarningThresholdHours  float64 `json:"warning_threshold_hours" db:"warning_threshold_hours"`
	CriticalThresholdHours float64 `json:"critical_threshold_hours" db:"critical_threshold_hours"`
	CompletedWindowMinutes int     `json:"completed_window_minutes" db:"completed_window_minutes"`
	DetentionRatePerHour   float64 `json:"detention_rate_per_hour" db:"detention_rate_per_hour"`
	UpdatedAt              int64   `json:"updated_at" db:"updated_at"`
}

// ToNullInt64 converts a pointer to int64 to sql.NullInt64
func ToNullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// FromNullInt64 converts sql.NullInt64 to pointer to int64
func FromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// ToNullString converts a pointer to string to sql.NullString
func ToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// FromNullString converts sql.NullString to pointer to string
func FromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
