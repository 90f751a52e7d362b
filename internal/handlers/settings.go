package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// GetSettings returns the global dashboard defaults. Stop-type thresholds are
// fixed in the detention package and take precedence over the hour values here.
func GetSettings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s models.Settings
		if err := db.Get(&s, "SELECT * FROM settings WHERE id = 1"); err != nil {
			log.Printf("❌ Failed to fetch settings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch settings")
			return
		}

		utils.RespondData(w, s)
	}
}

type UpdateSettingsRequest struct {
	WarningThresholdHours  *float64 `json:"warning_threshold_hours"`
	CriticalThresholdHours *float64 `json:"critical_threshold_hours"`
	CompletedWindowMinutes *int     `json:"completed_window_minutes"`
	DetentionRatePerHour   *float64 `json:"detention_rate_per_hour"`
}

func UpdateSettings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		query := `
			UPDATE settings SET
				warning_threshold_hours = COALESCE($1, warning_threshold_hours),
				critical_threshold_hours = COALESCE($2, critical_threshold_hours),
				completed_window_minutes = COALESCE($3, completed_window_minutes),
				detention_rate_per_hour = COALESCE($4, detention_rate_per_hour),
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = 1
			RETURNING id, warning_threshold_hours, critical_threshold_hours,
				completed_window_minutes, detention_rate_per_hour, updated_at
		`
		var s models.Settings
		err := db.QueryRowx(query, req.WarningThresholdHours, req.CriticalThresholdHours,
			req.CompletedWindowMinutes, req.DetentionRatePerHour).StructScan(&s)
		if err != nil {
			log.Printf("❌ Failed to update settings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}

		log.Printf("⚙️  Settings updated")
		utils.RespondData(w, s)
	}
}
