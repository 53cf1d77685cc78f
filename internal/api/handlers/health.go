package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Lots             int `json:"lots"`
	Spots            int `json:"spots"`
	OccupiedSpots    int `json:"occupied_spots"`
	Vehicles         int `json:"vehicles"`
	ActivePermits    int `json:"active_permits"`
	OpenSessions     int `json:"open_sessions"`
	ConnectedClients int `json:"connected_clients"`
}

// Status returns a handler that provides system status counters.
func Status(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var response StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lots").Scan(&response.Lots)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spots").Scan(&response.Spots)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spots WHERE occupied = 1").Scan(&response.OccupiedSpots)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&response.Vehicles)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM permits WHERE expires_at > CURRENT_TIMESTAMP").Scan(&response.ActivePermits)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parking_history WHERE departed_at IS NULL").Scan(&response.OpenSessions)

		if hub != nil {
			response.ConnectedClients = hub.ClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
