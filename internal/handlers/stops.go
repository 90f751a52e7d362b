package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"fleetwatch-backend/internal/detention"
	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/websocket"
	"fleetwatch-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CheckInRequest struct {
	Location        string          `json:"location"`
	Latitude        *float64        `json:"latitude"`
	Longitude       *float64        `json:"longitude"`
	StopType        models.StopType `json:"stop_type"`
	AppointmentTime *int64          `json:"appointment_time"`
	Timestamp       *int64          `json:"timestamp"` // arrival; defaults to now
}

// CheckIn records a driver's arrival at a stop and starts monitoring it. A
// driver can have only one open stop; the DB index rejects a second.
func CheckIn(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		var req CheckInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Location == "" {
			utils.RespondError(w, http.StatusBadRequest, "location is required")
			return
		}
		if _, err := detention.ThresholdsFor(req.StopType); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "unknown stop_type")
			return
		}

		arrival := time.Now().Unix()
		if req.Timestamp != nil {
			arrival = *req.Timestamp
		}

		stop := models.Stop{
			ID:              uuid.NewString(),
			DriverID:        driverID,
			Location:        req.Location,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			StopType:        req.StopType,
			AppointmentTime: req.AppointmentTime,
			Timestamp:       arrival,
		}

		query := `
			INSERT INTO driver_stops (id, driver_id, location, latitude, longitude, stop_type, appointment_time, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		`
		err := db.QueryRow(query, stop.ID, stop.DriverID, stop.Location, stop.Latitude,
			stop.Longitude, stop.StopType, stop.AppointmentTime, stop.Timestamp).Scan(&stop.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				utils.RespondError(w, http.StatusConflict, "Driver already has an open stop")
				return
			}
			log.Printf("❌ Failed to record check-in for driver %s: %v", driverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record check-in")
			return
		}

		log.Printf("📍 Driver %s checked in at %s (%s)", driverID, stop.Location, stop.StopType)
		hub.BroadcastToRole("dispatcher", map[string]interface{}{
			"type": "driver_status_update",
			"data": map[string]interface{}{"driver_id": driverID, "status": detention.StatusAtStop, "stop": stop},
		})

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    stop,
		})
	}
}

type DepartRequest struct {
	DepartureTime *int64 `json:"departure_time"` // defaults to now
}

// Depart closes the driver's open stop and freezes its final detention
// figures. The frozen numbers are what billing sees; later reads never
// recompute them.
func Depart(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		var req DepartRequest
		if r.Body != nil {
			// Body is optional; ignore decode errors on empty bodies
			json.NewDecoder(r.Body).Decode(&req)
		}

		departure := time.Now().Unix()
		if req.DepartureTime != nil {
			departure = *req.DepartureTime
		}

		var stop models.Stop
		query := `SELECT * FROM driver_stops WHERE driver_id = $1 AND departure_time IS NULL`
		if err := db.Get(&stop, query, driverID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Driver has no open stop")
				return
			}
			log.Printf("❌ Failed to load open stop for driver %s: %v", driverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load open stop")
			return
		}

		classifier := classifierFromSettings(db)
		cls, err := classifier.Classify(&stop, time.Unix(departure, 0))
		if err != nil {
			log.Printf("⚠️ Closing stop %s with unknown stop type: %v", stop.ID, err)
		}

		update := `
			UPDATE driver_stops
			SET departure_time = $2, final_detention_minutes = $3, final_detention_cost = $4
			WHERE id = $1 AND departure_time IS NULL
		`
		res, err := db.Exec(update, stop.ID, departure, cls.DetentionMinutes, cls.DetentionCost)
		if err != nil {
			log.Printf("❌ Failed to close stop %s: %v", stop.ID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to close stop")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			utils.RespondError(w, http.StatusConflict, "Stop was already closed")
			return
		}

		stop.DepartureTime = &departure
		stop.FinalDetentionMinutes = &cls.DetentionMinutes
		stop.FinalDetentionCost = &cls.DetentionCost

		log.Printf("🚚 Driver %s departed %s (detention: %d min, $%.2f)",
			driverID, stop.Location, cls.DetentionMinutes, cls.DetentionCost)
		hub.BroadcastToRole("dispatcher", map[string]interface{}{
			"type": "driver_status_update",
			"data": map[string]interface{}{"driver_id": driverID, "status": detention.StatusCompleted, "stop": stop},
		})

		utils.RespondData(w, stop)
	}
}

// GetDriverStops returns a driver's stop history, newest first.
func GetDriverStops(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		var stops []models.Stop
		query := `SELECT * FROM driver_stops WHERE driver_id = $1 ORDER BY timestamp DESC LIMIT 100`
		if err := db.Select(&stops, query, driverID); err != nil {
			log.Printf("❌ Failed to fetch stops for driver %s: %v", driverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch stops")
			return
		}

		utils.RespondData(w, stops)
	}
}
