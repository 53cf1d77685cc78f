package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// ListPermitTypes returns the available (category, duration) pairs.
func ListPermitTypes(permits *storage.PermitRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := permits.ListTypes(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query permit types")
			return
		}
		if types == nil {
			types = []models.PermitType{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types)
	}
}

// PermitRequest is the body for issuing a permit.
type PermitRequest struct {
	AccountID    string `json:"account_id"`
	VehicleID    string `json:"vehicle_id"`
	PermitTypeID string `json:"permit_type_id"`
}

// IssuePermit issues a permit for a vehicle. Expiration is derived
// from the permit type's duration. A vehicle cannot hold two permits
// whose validity windows overlap.
func IssuePermit(permits *storage.PermitRepository, vehicles *storage.VehicleRepository, schedule policy.ExpirationSchedule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req PermitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.AccountID == "" || req.VehicleID == "" || req.PermitTypeID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "account_id, vehicle_id and permit_type_id are required")
			return
		}

		vehicle, err := vehicles.GetByID(ctx, req.VehicleID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query vehicle")
			return
		}
		if vehicle == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown vehicle")
			return
		}
		if vehicle.AccountID != req.AccountID {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Vehicle belongs to a different account")
			return
		}

		permitType, err := permits.GetType(ctx, req.PermitTypeID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query permit type")
			return
		}
		if permitType == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown permit type")
			return
		}

		now := time.Now().UTC()
		expiresAt, err := schedule.ExpirationFor(permitType.Duration, now)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unsupported permit duration")
			return
		}

		if active, err := permits.ActiveByVehicle(ctx, req.VehicleID, now); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query existing permits")
			return
		} else if active != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Vehicle already holds an active permit")
			return
		}

		permit := &models.Permit{
			AccountID:    req.AccountID,
			VehicleID:    req.VehicleID,
			PermitTypeID: req.PermitTypeID,
			IssuedAt:     now,
			ExpiresAt:    expiresAt,
		}
		if err := permits.Create(ctx, permit); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to issue permit")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(permit)
	}
}

// ListPermits returns permits, optionally filtered by account.
func ListPermits(permits *storage.PermitRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "account_id query parameter is required")
			return
		}

		list, err := permits.ListByAccount(r.Context(), accountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query permits")
			return
		}
		if list == nil {
			list = []models.Permit{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// GetPermit returns one permit by ID.
func GetPermit(permits *storage.PermitRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		permit, err := permits.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query permit")
			return
		}
		if permit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Permit not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(permit)
	}
}

// RevokePermit deletes a permit. An occupant evicted as a consequence
// is handled by the enforcement sweep, not here.
func RevokePermit(permits *storage.PermitRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		permit, err := permits.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query permit")
			return
		}
		if permit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Permit not found")
			return
		}

		if err := permits.Delete(ctx, id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to revoke permit")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
