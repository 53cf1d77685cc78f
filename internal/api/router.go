// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/allocation"
	"github.com/parking-permit-manager/backend/internal/api/handlers"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/enforcement"
	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/websocket"
	"github.com/parking-permit-manager/backend/internal/zone"
)

// Deps bundles everything the routes need.
type Deps struct {
	DB       *storage.DB
	Hub      *websocket.Hub
	Engine   *allocation.Engine
	Sweeper  *enforcement.Sweeper
	Zones    *zone.Reconciler
	Schedule policy.ExpirationSchedule

	Vehicles *storage.VehicleRepository
	Permits  *storage.PermitRepository
	Lots     *storage.LotRepository
	Spots    *storage.SpotRepository
	History  *storage.HistoryRepository
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub)).Methods("GET")

	// WebSocket event feed
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub)).Methods("GET")

	// Allocation endpoints
	api.HandleFunc("/claims", handlers.Claim(d.Engine)).Methods("POST")
	api.HandleFunc("/claims/release", handlers.Release(d.Engine)).Methods("POST")
	api.HandleFunc("/accounts/{accountID}/status", handlers.AccountStatus(d.Engine)).Methods("GET")

	// Spot endpoints
	api.HandleFunc("/spots", handlers.ListSpots(d.Engine)).Methods("GET")
	api.HandleFunc("/spots", handlers.CreateSpot(d.Spots, d.Lots)).Methods("POST")
	api.HandleFunc("/spots/{id}", handlers.GetSpot(d.Spots)).Methods("GET")
	api.HandleFunc("/spots/{id}", handlers.UpdateSpot(d.Spots)).Methods("PUT")
	api.HandleFunc("/spots/{id}", handlers.DeleteSpot(d.Spots)).Methods("DELETE")

	// Lot and zone endpoints
	api.HandleFunc("/lots", handlers.ListLots(d.Lots)).Methods("GET")
	api.HandleFunc("/lots", handlers.CreateLot(d.Lots)).Methods("POST")
	api.HandleFunc("/lots/{id}", handlers.GetLot(d.Lots)).Methods("GET")
	api.HandleFunc("/lots/{id}", handlers.UpdateLot(d.Lots)).Methods("PUT")
	api.HandleFunc("/lots/{id}", handlers.DeleteLot(d.Lots)).Methods("DELETE")
	api.HandleFunc("/lots/{id}/spots", handlers.GetLotSpots(d.Lots, d.Spots)).Methods("GET")
	api.HandleFunc("/lots/{id}/zone-assignment", handlers.SetZoneAssignment(d.Lots)).Methods("PUT")
	api.HandleFunc("/zones", handlers.ListZones(d.Lots)).Methods("GET")

	// Vehicle endpoints
	api.HandleFunc("/vehicles", handlers.ListVehicles(d.Vehicles)).Methods("GET")
	api.HandleFunc("/vehicles", handlers.CreateVehicle(d.Vehicles)).Methods("POST")
	api.HandleFunc("/vehicles/{id}", handlers.GetVehicle(d.Vehicles)).Methods("GET")
	api.HandleFunc("/vehicles/{id}", handlers.UpdateVehicle(d.Vehicles)).Methods("PUT")
	api.HandleFunc("/vehicles/{id}", handlers.DeleteVehicle(d.Vehicles, d.History)).Methods("DELETE")
	api.HandleFunc("/vehicles/{id}/history", handlers.GetVehicleHistory(d.Vehicles, d.History)).Methods("GET")

	// Permit endpoints
	api.HandleFunc("/permit-types", handlers.ListPermitTypes(d.Permits)).Methods("GET")
	api.HandleFunc("/permits", handlers.ListPermits(d.Permits)).Methods("GET")
	api.HandleFunc("/permits", handlers.IssuePermit(d.Permits, d.Vehicles, d.Schedule)).Methods("POST")
	api.HandleFunc("/permits/{id}", handlers.GetPermit(d.Permits)).Methods("GET")
	api.HandleFunc("/permits/{id}", handlers.RevokePermit(d.Permits)).Methods("DELETE")

	// Manual maintenance triggers
	api.HandleFunc("/maintenance/reconcile-zones", handlers.ReconcileZones(d.Zones)).Methods("POST")
	api.HandleFunc("/maintenance/sweep", handlers.RunSweep(d.Sweeper)).Methods("POST")
	api.HandleFunc("/maintenance/prune", handlers.RunPrune(d.Sweeper)).Methods("POST")

	return r
}
