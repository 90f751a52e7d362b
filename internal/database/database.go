package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔄 Step 1: Attempting sqlx.Connect()...")
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Step 1 Complete: sqlx.Connect() succeeded")

	log.Println("🔄 Step 2: Testing connection with Ping()...")
	if err := db.Ping(); err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("✅ Step 2 Complete: Ping() succeeded")

	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table (dispatchers and admins)
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('dispatcher', 'admin')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create drivers table (fleet roster - rows are deactivated, never deleted)
		`CREATE TABLE IF NOT EXISTS drivers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			truck_number TEXT NOT NULL,
			dispatcher TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create driver_stops table
		// departure_time NULL means the stop is open; a driver has at most one
		// open stop, enforced by the partial unique index below
		`CREATE TABLE IF NOT EXISTS driver_stops (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			stop_type TEXT NOT NULL CHECK(stop_type IN ('regular', 'multi-stop', 'rail', 'no-billing', 'drop-hook')),
			appointment_time BIGINT,
			departure_time BIGINT,
			final_detention_minutes INT,
			final_detention_cost DOUBLE PRECISION,
			timestamp BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_driver_stops_one_open
			ON driver_stops(driver_id) WHERE departure_time IS NULL`,

		// Create alerts table
		// stop_id anchors alert identity; appointment_time is display data and
		// can be NULL, which would defeat a unique index keyed on it
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			stop_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('warning', 'critical', 'reminder')),
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			appointment_time BIGINT,
			minute_bucket INT,
			timestamp BIGINT NOT NULL,
			FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE,
			FOREIGN KEY (stop_id) REFERENCES driver_stops(id) ON DELETE CASCADE
		)`,

		// At most one warning and one critical per stop; at most one reminder
		// per 30-minute bucket. Concurrent evaluation ticks rely on these.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_once_per_stop
			ON alerts(driver_id, stop_id, type) WHERE type IN ('warning', 'critical')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_reminder_bucket
			ON alerts(driver_id, stop_id, type, minute_bucket) WHERE type = 'reminder'`,

		// Create FCM tokens table (dispatcher devices for push delivery)
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'web')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create settings table (single row of global defaults)
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY DEFAULT 1 CHECK(id = 1),
			warning_threshold_hours DOUBLE PRECISION NOT NULL DEFAULT 1.5,
			critical_threshold_hours DOUBLE PRECISION NOT NULL DEFAULT 2.0,
			completed_window_minutes INT NOT NULL DEFAULT 30,
			detention_rate_per_hour DOUBLE PRECISION NOT NULL DEFAULT 75,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_drivers_dispatcher ON drivers(dispatcher)`,
		`CREATE INDEX IF NOT EXISTS idx_drivers_is_active ON drivers(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_driver_stops_driver_id ON driver_stops(driver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_driver_stops_timestamp ON driver_stops(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_driver_id ON alerts(driver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_stop_id ON alerts(stop_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_is_read ON alerts(is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
