package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetwatch-backend/internal/detention"
	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/store"
	"fleetwatch-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GetDrivers returns the dispatcher dashboard view: every active driver with
// their current stop and freshly computed detention status. The computed
// fields are derived on every read and never stored.
func GetDrivers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pg := store.NewPostgres(db)
		drivers, err := pg.ListActiveDriversWithStops(r.Context())
		if err != nil {
			log.Printf("❌ Failed to list drivers: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch drivers")
			return
		}

		classifier := classifierFromSettings(db)
		dispatcher := r.URL.Query().Get("dispatcher")
		now := time.Now()

		out := make([]models.DriverWithLocation, 0, len(drivers))
		for _, ds := range drivers {
			if dispatcher != "" && ds.Driver.Dispatcher != dispatcher {
				continue
			}

			cls, err := classifier.Classify(ds.Stop, now)
			if err != nil {
				// Unknown stop type: surface the fallback status, keep going
				log.Printf("⚠️ Driver %s: %v", ds.Driver.ID, err)
			}

			dwl := models.DriverWithLocation{
				Driver:           ds.Driver,
				Status:           cls.Status,
				DetentionMinutes: cls.DetentionMinutes,
				DetentionCost:    cls.DetentionCost,
				TimeToDetention:  cls.TimeToDetention,
				IsInDetention:    cls.IsInDetention,
			}
			if ds.Stop != nil && (ds.Stop.IsOpen() || cls.Status == detention.StatusCompleted) {
				dwl.CurrentStop = ds.Stop
			}
			out = append(out, dwl)
		}

		utils.RespondData(w, out)
	}
}

type CreateDriverRequest struct {
	Name        string `json:"name"`
	TruckNumber string `json:"truck_number"`
	Dispatcher  string `json:"dispatcher"`
}

func CreateDriver(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDriverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || req.TruckNumber == "" || req.Dispatcher == "" {
			utils.RespondError(w, http.StatusBadRequest, "name, truck_number and dispatcher are required")
			return
		}

		driver := models.Driver{
			ID:          uuid.NewString(),
			Name:        req.Name,
			TruckNumber: req.TruckNumber,
			Dispatcher:  req.Dispatcher,
			IsActive:    true,
		}

		query := `
			INSERT INTO drivers (id, name, truck_number, dispatcher, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING created_at, updated_at
		`
		if err := db.QueryRow(query, driver.ID, driver.Name, driver.TruckNumber, driver.Dispatcher).
			Scan(&driver.CreatedAt, &driver.UpdatedAt); err != nil {
			log.Printf("❌ Failed to create driver: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create driver")
			return
		}

		log.Printf("✅ Created driver %s (truck %s)", driver.Name, driver.TruckNumber)
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    driver,
		})
	}
}

type UpdateDriverRequest struct {
	Name        *string `json:"name"`
	TruckNumber *string `json:"truck_number"`
	Dispatcher  *string `json:"dispatcher"`
}

func UpdateDriver(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		var req UpdateDriverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		query := `
			UPDATE drivers SET
				name = COALESCE($2, name),
				truck_number = COALESCE($3, truck_number),
				dispatcher = COALESCE($4, dispatcher),
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $1
		`
		res, err := db.Exec(query, driverID, req.Name, req.TruckNumber, req.Dispatcher)
		if err != nil {
			log.Printf("❌ Failed to update driver %s: %v", driverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update driver")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}

		utils.RespondData(w, map[string]string{"id": driverID})
	}
}

// DeactivateDriver takes a driver off the monitored roster. Drivers are never
// deleted; their stop and alert history stays queryable.
func DeactivateDriver(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		query := `
			UPDATE drivers SET is_active = FALSE,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $1
		`
		res, err := db.Exec(query, driverID)
		if err != nil {
			log.Printf("❌ Failed to deactivate driver %s: %v", driverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to deactivate driver")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}

		log.Printf("🔻 Driver %s deactivated", driverID)
		utils.RespondData(w, map[string]string{"id": driverID})
	}
}

// classifierFromSettings builds a classifier using the stored global settings,
// falling back to package defaults when the settings row is unreadable.
func classifierFromSettings(db *sqlx.DB) *detention.Classifier {
	var s models.Settings
	if err := db.Get(&s, "SELECT * FROM settings WHERE id = 1"); err != nil {
		return detention.NewClassifier(detention.RatePerHour(detention.DefaultRatePerHour))
	}
	c := detention.NewClassifier(detention.RatePerHour(s.DetentionRatePerHour))
	if s.CompletedWindowMinutes > 0 {
		c.CompletedWindow = time.Duration(s.CompletedWindowMinutes) * time.Minute
	}
	return c
}
