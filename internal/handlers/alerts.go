package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"fleetwatch-backend/internal/middleware"
	"fleetwatch-backend/internal/monitor"
	"fleetwatch-backend/internal/store"
	"fleetwatch-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// GetAlerts lists alerts for the dashboard, newest first.
// Query params: unread=true, dispatcher=<name>, limit=<n>.
func GetAlerts(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := store.AlertFilter{
			UnreadOnly: r.URL.Query().Get("unread") == "true",
			Dispatcher: r.URL.Query().Get("dispatcher"),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				f.Limit = n
			}
		}

		alerts, err := store.NewPostgres(db).ListAlerts(r.Context(), f)
		if err != nil {
			log.Printf("❌ Failed to fetch alerts: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch alerts")
			return
		}

		utils.RespondData(w, alerts)
	}
}

// MarkAlertRead flips a single alert to read.
func MarkAlertRead(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID := chi.URLParam(r, "id")

		err := store.NewPostgres(db).MarkAlertRead(r.Context(), alertID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Alert not found")
				return
			}
			log.Printf("❌ Failed to mark alert %s read: %v", alertID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to mark alert read")
			return
		}

		utils.RespondData(w, map[string]string{"id": alertID})
	}
}

// MarkAllAlertsRead marks every unread alert read, optionally scoped to one
// dispatcher's drivers via ?dispatcher=.
func MarkAllAlertsRead(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatcher := r.URL.Query().Get("dispatcher")

		if err := store.NewPostgres(db).MarkAllRead(r.Context(), dispatcher); err != nil {
			log.Printf("❌ Failed to mark alerts read: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to mark alerts read")
			return
		}

		utils.RespondData(w, map[string]bool{"ok": true})
	}
}

// ClearAlertHistory deletes all alerts. Admin only.
func ClearAlertHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		if err := store.NewPostgres(db).ClearHistory(r.Context()); err != nil {
			log.Printf("❌ Failed to clear alert history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to clear alert history")
			return
		}

		log.Printf("🧹 Alert history cleared by %s", claims.Email)
		utils.RespondData(w, map[string]bool{"ok": true})
	}
}

// EvaluateNow runs one evaluation pass on demand, for the dashboard's manual
// refresh button. Safe to race with the periodic tick: the store's uniqueness
// constraints dedupe any alert both try to create.
func EvaluateNow(m *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		created := m.ProcessOnce(r.Context(), time.Now())
		utils.RespondData(w, map[string]int{"alerts_created": created})
	}
}
