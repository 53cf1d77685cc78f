// Package main is the entry point for the parking permit manager server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parking-permit-manager/backend/internal/allocation"
	"github.com/parking-permit-manager/backend/internal/api"
	"github.com/parking-permit-manager/backend/internal/config"
	"github.com/parking-permit-manager/backend/internal/enforcement"
	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/websocket"
	"github.com/parking-permit-manager/backend/internal/zone"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting parking permit manager (version: %s)...", version)

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", cfg.DataDir, err)
	}
	dbPath := cfg.DataDir + "/parking-permit-manager.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	vehicleRepo := storage.NewVehicleRepository(db)
	permitRepo := storage.NewPermitRepository(db)
	lotRepo := storage.NewLotRepository(db)
	spotRepo := storage.NewSpotRepository(db)
	historyRepo := storage.NewHistoryRepository(db)

	// Policy tables
	zoneAccess := policy.DefaultZoneAccess()
	schedule := policy.DefaultExpirationSchedule()

	// Allocation engine
	engine := allocation.NewEngine(
		allocation.NewStoreAdapter(permitRepo, spotRepo, lotRepo, historyRepo),
		zoneAccess,
		hub,
	)

	// Zone reconciliation
	reconciler := zone.NewReconciler(zone.NewStore(lotRepo), cfg.NightWindow())
	zoneScheduler := zone.NewScheduler(reconciler, hub, cfg.ReconcileInterval)

	// Enforcement
	sweeper := enforcement.NewSweeper(
		enforcement.NewStore(historyRepo),
		zoneAccess,
		cfg.ZoneGraceDuration,
		cfg.HistoryRetention,
		hub,
	)
	enforcementScheduler := enforcement.NewScheduler(sweeper, cfg.SweepInterval, cfg.PruneInterval)

	// Start schedulers
	if err := zoneScheduler.Start(context.Background()); err != nil {
		log.Printf("Warning: Failed to start zone scheduler: %v", err)
	}
	if err := enforcementScheduler.Start(context.Background()); err != nil {
		log.Printf("Warning: Failed to start enforcement scheduler: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(api.Deps{
		DB:       db,
		Hub:      hub,
		Engine:   engine,
		Sweeper:  sweeper,
		Zones:    reconciler,
		Schedule: schedule,
		Vehicles: vehicleRepo,
		Permits:  permitRepo,
		Lots:     lotRepo,
		Spots:    spotRepo,
		History:  historyRepo,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop schedulers
	zoneScheduler.Stop()
	enforcementScheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
