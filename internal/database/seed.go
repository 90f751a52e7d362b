package database

import (
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the initial admin account and a demo dispatcher so the
// dashboard is usable on a fresh database.
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme123"
		log.Println("⚠️  SEED_ADMIN_PASSWORD not set, using default (change it!)")
	}

	users := []struct {
		email, name, role, password string
	}{
		{"admin@fleetwatch.local", "Fleet Admin", "admin", adminPassword},
		{"dispatch@fleetwatch.local", "Day Dispatch", "dispatcher", adminPassword},
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.Exec(
			`INSERT INTO users (id, email, password, name, role) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), u.email, string(hash), u.name, u.role,
		)
		if err != nil {
			return err
		}
	}

	log.Printf("🌱 Seeded %d users", len(users))
	return nil
}

// SeedDrivers loads a small demo roster when the drivers table is empty.
func SeedDrivers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM drivers"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Drivers already seeded, skipping...")
		return nil
	}

	drivers := []struct {
		name, truck, dispatcher string
	}{
		{"Marcus Webb", "T-101", "Day Dispatch"},
		{"Elena Ruiz", "T-102", "Day Dispatch"},
		{"Darnell Hayes", "T-204", "Day Dispatch"},
		{"Pete Kowalski", "T-315", "Day Dispatch"},
	}

	for _, d := range drivers {
		_, err := db.Exec(
			`INSERT INTO drivers (id, name, truck_number, dispatcher) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), d.name, d.truck, d.dispatcher,
		)
		if err != nil {
			return err
		}
	}

	log.Printf("🌱 Seeded %d drivers", len(drivers))
	return nil
}
