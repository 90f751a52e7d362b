package main

import (
	"log"
	"net/http"
	"os"

	"fleetwatch-backend/internal/database"
	"fleetwatch-backend/internal/detention"
	"fleetwatch-backend/internal/handlers"
	"fleetwatch-backend/internal/metrics"
	"fleetwatch-backend/internal/middleware"
	"fleetwatch-backend/internal/monitor"
	"fleetwatch-backend/internal/services"
	"fleetwatch-backend/internal/store"
	"fleetwatch-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 FLEETWATCH BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ FATAL: DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ FATAL: Database connection failed: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ FATAL: Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL: User seeding failed: %v", err)
	}
	if err := database.SeedDrivers(db); err != nil {
		log.Fatalf("❌ FATAL: Driver seeding failed: %v", err)
	}
	log.Println("✅ Seed data in place")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Metrics
	metrics.RegisterDefault()

	// Detention monitor: classify every active driver's stop on a fixed
	// interval and raise due alerts
	pg := store.NewPostgres(db)
	classifier := detention.NewClassifier(detention.RatePerHour(detention.DefaultRatePerHour))
	engine := detention.NewEngine(pg, classifier)
	notifier := services.NewAlertNotifier(wsHub, fcmService, db)
	mon := monitor.New(pg, engine, notifier)
	mon.Start()
	log.Printf("✅ Detention monitor started (interval: %s)", mon.Interval)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			// Auth status endpoint
			r.Get("/auth/status", handlers.GetAuthStatus(db))

			// Fleet dashboard
			r.Get("/drivers", handlers.GetDrivers(db))
			r.Post("/drivers", handlers.CreateDriver(db))
			r.Patch("/drivers/{id}", handlers.UpdateDriver(db))
			r.Post("/drivers/{id}/deactivate", handlers.DeactivateDriver(db))

			// Stop check-in / departure
			r.Get("/drivers/{id}/stops", handlers.GetDriverStops(db))
			r.Post("/drivers/{id}/stops", handlers.CheckIn(db, wsHub))
			r.Post("/drivers/{id}/stops/depart", handlers.Depart(db, wsHub))

			// Alerts
			r.Get("/alerts", handlers.GetAlerts(db))
			r.Post("/alerts/{id}/read", handlers.MarkAlertRead(db))
			r.Post("/alerts/read-all", handlers.MarkAllAlertsRead(db))
			r.Post("/alerts/evaluate", handlers.EvaluateNow(mon))

			// Settings
			r.Get("/settings", handlers.GetSettings(db))
			r.Put("/settings", handlers.UpdateSettings(db))

			// FCM token registration
			r.Post("/fcm-token", handlers.RegisterFCMToken(db))
		})

		// Admin endpoints (require authentication + admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			r.Post("/users", handlers.CreateUser(db))
			r.Delete("/alerts/history", handlers.ClearAlertHistory(db))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ FATAL: Server failed to start: %v", err)
	}
}
