package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/allocation"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// ListSpots returns the display snapshot of every spot.
func ListSpots(engine *allocation.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := engine.ListSpots(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query spots")
			return
		}
		if views == nil {
			views = []allocation.SpotView{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

// SpotRequest is the admin create/update body for a spot.
type SpotRequest struct {
	LotID      string   `json:"lot_id"`
	ZoneID     string   `json:"zone_id"`
	SpotNumber string   `json:"spot_number"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Active     *bool    `json:"active,omitempty"`
}

// CreateSpot registers a new spot in a lot.
func CreateSpot(spots *storage.SpotRepository, lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SpotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.LotID == "" || req.ZoneID == "" || req.SpotNumber == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "lot_id, zone_id and spot_number are required")
			return
		}

		if lot, err := lots.GetByID(ctx, req.LotID); err != nil || lot == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown lot")
			return
		}
		if zone, err := lots.GetZoneByID(ctx, req.ZoneID); err != nil || zone == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown zone")
			return
		}
		if existing, err := spots.GetByNumber(ctx, req.SpotNumber); err == nil && existing != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Spot number already in use")
			return
		}

		spot := &models.Spot{
			LotID:      req.LotID,
			ZoneID:     req.ZoneID,
			SpotNumber: req.SpotNumber,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Active:     true,
		}
		if req.Active != nil {
			spot.Active = *req.Active
		}

		if err := spots.Create(ctx, spot); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create spot")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(spot)
	}
}

// GetSpot returns one spot with its lot and zone names.
func GetSpot(spots *storage.SpotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		spot, err := spots.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query spot")
			return
		}
		if spot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Spot not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(spot)
	}
}

// UpdateSpot changes a spot's zone tag, position or active flag. The
// occupied flag is not writable here; it only moves together with the
// parking history.
func UpdateSpot(spots *storage.SpotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		existing, err := spots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query spot")
			return
		}
		if existing == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Spot not found")
			return
		}

		var req SpotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		spot := existing.Spot
		if req.ZoneID != "" {
			spot.ZoneID = req.ZoneID
		}
		if req.SpotNumber != "" {
			spot.SpotNumber = req.SpotNumber
		}
		if req.Latitude != nil {
			spot.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			spot.Longitude = req.Longitude
		}
		if req.Active != nil {
			spot.Active = *req.Active
		}

		if err := spots.Update(ctx, &spot); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update spot")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(spot)
	}
}

// DeleteSpot removes a spot. An occupied spot cannot be deleted.
func DeleteSpot(spots *storage.SpotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		spot, err := spots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query spot")
			return
		}
		if spot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Spot not found")
			return
		}
		if spot.Occupied {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Spot is occupied")
			return
		}

		if err := spots.Delete(ctx, id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete spot")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
