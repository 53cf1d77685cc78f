package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// VehicleRequest is the create/update body for a vehicle.
type VehicleRequest struct {
	AccountID   string  `json:"account_id"`
	Plate       string  `json:"plate"`
	Description *string `json:"description,omitempty"`
}

// ListVehicles returns vehicles, optionally filtered by account.
func ListVehicles(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			list []models.Vehicle
			err  error
		)
		if accountID := r.URL.Query().Get("account_id"); accountID != "" {
			list, err = vehicles.ListByAccount(ctx, accountID)
		} else {
			list, err = vehicles.List(ctx)
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicles")
			return
		}
		if list == nil {
			list = []models.Vehicle{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreateVehicle registers a vehicle for an account. The plate must be
// unique across all vehicles.
func CreateVehicle(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req VehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.AccountID == "" || req.Plate == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "account_id and plate are required")
			return
		}

		if existing, err := vehicles.GetByPlate(ctx, req.Plate); err == nil && existing != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Plate already registered")
			return
		}

		vehicle := &models.Vehicle{
			AccountID:   req.AccountID,
			Plate:       req.Plate,
			Description: req.Description,
		}
		if err := vehicles.Create(ctx, vehicle); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create vehicle")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(vehicle)
	}
}

// GetVehicle returns one vehicle by ID.
func GetVehicle(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		vehicle, err := vehicles.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(vehicle)
	}
}

// UpdateVehicle changes a vehicle's plate or description.
func UpdateVehicle(vehicles *storage.VehicleRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		vehicle, err := vehicles.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		var req VehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Plate != "" && req.Plate != vehicle.Plate {
			if existing, err := vehicles.GetByPlate(ctx, req.Plate); err == nil && existing != nil && existing.ID != vehicle.ID {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Plate already registered")
				return
			}
			vehicle.Plate = req.Plate
		}
		if req.Description != nil {
			vehicle.Description = req.Description
		}

		if err := vehicles.Update(ctx, vehicle); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update vehicle")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(vehicle)
	}
}

// DeleteVehicle removes a vehicle. A currently parked vehicle cannot
// be deleted.
func DeleteVehicle(vehicles *storage.VehicleRepository, history *storage.HistoryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		vehicle, err := vehicles.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		open, err := history.OpenByVehicle(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query parking state")
			return
		}
		if open != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Vehicle is currently parked")
			return
		}

		if err := vehicles.Delete(ctx, id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete vehicle")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetVehicleHistory returns the vehicle's recent parking sessions,
// newest first. The limit query parameter caps the result.
func GetVehicleHistory(vehicles *storage.VehicleRepository, history *storage.HistoryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		vehicle, err := vehicles.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Vehicle not found")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		records, err := history.ListByVehicle(ctx, id, limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query history")
			return
		}
		if records == nil {
			records = []models.ParkingHistory{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}
