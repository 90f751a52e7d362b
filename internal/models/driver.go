package models

// Driver represents a truck driver on the fleet roster.
// Drivers are never deleted, only deactivated.
type Driver struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	TruckNumber string `json:"truck_number" db:"truck_number"`
	Dispatcher  string `json:"dispatcher" db:"dispatcher"`
	IsActive    bool   `json:"is_active" db:"is_active"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
}

// DriverWithLocation is the dashboard view of a driver: the roster record
// combined with the current open stop and the computed detention fields.
// It is recomputed on every read and never stored.
type DriverWithLocation struct {
	Driver
	CurrentStop      *Stop    `json:"current_stop,omitempty"`
	Status           string   `json:"status"`
	DetentionMinutes int      `json:"detention_minutes"`
	DetentionCost    float64  `json:"detention_cost"`
	TimeToDetention  *int     `json:"time_to_detention,omitempty"` // minutes, nil once in detention
	IsInDetention    bool     `json:"is_in_detention"`
}
