package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleetwatch-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements AlertStore and FleetStore on the shared sqlx handle.
// Alert uniqueness is enforced by the partial unique indexes created in the
// migrations, so concurrent writers race safely: the loser gets a 23505 which
// is mapped to ErrDuplicateAlert.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, driver_id, stop_id, type, message, is_read, appointment_time, minute_bucket, timestamp)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8)
	`
	_, err := p.db.ExecContext(ctx, query,
		alert.ID, alert.DriverID, alert.StopID, alert.Type, alert.Message,
		alert.AppointmentTime, alert.MinuteBucket, alert.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (p *Postgres) ListStopAlerts(ctx context.Context, driverID, stopID string) ([]models.Alert, error) {
	var alerts []models.Alert
	query := `SELECT * FROM alerts WHERE driver_id = $1 AND stop_id = $2`
	if err := p.db.SelectContext(ctx, &alerts, query, driverID, stopID); err != nil {
		return nil, fmt.Errorf("list stop alerts: %w", err)
	}
	return alerts, nil
}

func (p *Postgres) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	query := `
		SELECT a.* FROM alerts a
		JOIN drivers d ON a.driver_id = d.id
		WHERE ($1 = '' OR d.dispatcher = $1)
		  AND (NOT $2 OR a.is_read = FALSE)
		ORDER BY a.timestamp DESC
		LIMIT $3
	`
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	var alerts []models.Alert
	if err := p.db.SelectContext(ctx, &alerts, query, f.Dispatcher, f.UnreadOnly, limit); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (p *Postgres) MarkAlertRead(ctx context.Context, alertID string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) MarkAllRead(ctx context.Context, dispatcher string) error {
	query := `
		UPDATE alerts SET is_read = TRUE
		WHERE is_read = FALSE
		  AND ($1 = '' OR driver_id IN (SELECT id FROM drivers WHERE dispatcher = $1))
	`
	if _, err := p.db.ExecContext(ctx, query, dispatcher); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (p *Postgres) ClearHistory(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
		return fmt.Errorf("clear alert history: %w", err)
	}
	return nil
}

// ListActiveDriversWithStops returns every active driver together with their
// most recent stop, open or not. The classifier needs recently closed stops
// too, for the "completed" display window.
func (p *Postgres) ListActiveDriversWithStops(ctx context.Context) ([]DriverStop, error) {
	query := `
		SELECT
			d.id, d.name, d.truck_number, d.dispatcher, d.is_active, d.created_at, d.updated_at,
			s.id AS stop_id, s.location, s.latitude, s.longitude, s.stop_type,
			s.appointment_time, s.departure_time, s.final_detention_minutes,
			s.final_detention_cost, s.timestamp AS stop_timestamp, s.created_at AS stop_created_at
		FROM drivers d
		LEFT JOIN LATERAL (
			SELECT * FROM driver_stops
			WHERE driver_id = d.id
			ORDER BY timestamp DESC
			LIMIT 1
		) s ON TRUE
		WHERE d.is_active = TRUE
		ORDER BY d.name
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers with stops: %w", err)
	}
	defer rows.Close()

	var out []DriverStop
	for rows.Next() {
		var ds DriverStop
		var stopID, location, stopType sql.NullString
		var lat, lng, finalCost sql.NullFloat64
		var appt, dep, stopTS, stopCreated sql.NullInt64
		var finalMins sql.NullInt64

		err := rows.Scan(
			&ds.Driver.ID, &ds.Driver.Name, &ds.Driver.TruckNumber, &ds.Driver.Dispatcher,
			&ds.Driver.IsActive, &ds.Driver.CreatedAt, &ds.Driver.UpdatedAt,
			&stopID, &location, &lat, &lng, &stopType,
			&appt, &dep, &finalMins, &finalCost, &stopTS, &stopCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan driver with stop: %w", err)
		}

		if stopID.Valid {
			stop := &models.Stop{
				ID:              stopID.String,
				DriverID:        ds.Driver.ID,
				Location:        location.String,
				StopType:        models.StopType(stopType.String),
				AppointmentTime: models.FromNullInt64(appt),
				DepartureTime:   models.FromNullInt64(dep),
				Timestamp:       stopTS.Int64,
				CreatedAt:       stopCreated.Int64,
			}
			if lat.Valid {
				stop.Latitude = &lat.Float64
			}
			if lng.Valid {
				stop.Longitude = &lng.Float64
			}
			if finalMins.Valid {
				m := int(finalMins.Int64)
				stop.FinalDetentionMinutes = &m
			}
			if finalCost.Valid {
				stop.FinalDetentionCost = &finalCost.Float64
			}
			ds.Stop = stop
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drivers with stops: %w", err)
	}
	return out, nil
}
