package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// LotRequest is the create/update body for a lot. Setting both zone
// IDs puts the lot under day/night zone scheduling.
type LotRequest struct {
	Name        string  `json:"name"`
	DayZoneID   *string `json:"day_zone_id,omitempty"`
	NightZoneID *string `json:"night_zone_id,omitempty"`
}

// ListLots returns all lots.
func ListLots(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := lots.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lots")
			return
		}
		if list == nil {
			list = []models.Lot{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// CreateLot adds a lot.
func CreateLot(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "name is required")
			return
		}
		if !validZoneRef(ctx, lots, req.DayZoneID) || !validZoneRef(ctx, lots, req.NightZoneID) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown zone")
			return
		}

		lot := &models.Lot{
			Name:        req.Name,
			DayZoneID:   req.DayZoneID,
			NightZoneID: req.NightZoneID,
		}
		if err := lots.Create(ctx, lot); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create lot")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(lot)
	}
}

// GetLot returns one lot by ID.
func GetLot(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		lot, err := lots.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lot")
			return
		}
		if lot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lot not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lot)
	}
}

// UpdateLot changes a lot's name or day/night zone pair.
func UpdateLot(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		lot, err := lots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lot")
			return
		}
		if lot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lot not found")
			return
		}

		var req LotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if !validZoneRef(ctx, lots, req.DayZoneID) || !validZoneRef(ctx, lots, req.NightZoneID) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown zone")
			return
		}

		if req.Name != "" {
			lot.Name = req.Name
		}
		lot.DayZoneID = req.DayZoneID
		lot.NightZoneID = req.NightZoneID

		if err := lots.Update(ctx, lot); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update lot")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lot)
	}
}

// DeleteLot removes a lot and, by cascade, its spots.
func DeleteLot(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		lot, err := lots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lot")
			return
		}
		if lot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lot not found")
			return
		}

		if err := lots.Delete(ctx, id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete lot")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetLotSpots returns the spots of one lot.
func GetLotSpots(lots *storage.LotRepository, spots *storage.SpotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		lot, err := lots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lot")
			return
		}
		if lot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lot not found")
			return
		}

		list, err := spots.ListByLot(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query spots")
			return
		}
		if list == nil {
			list = []models.SpotDetail{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// ZoneAssignmentRequest toggles a zone's activation within a lot.
type ZoneAssignmentRequest struct {
	ZoneID string `json:"zone_id"`
	Active bool   `json:"active"`
}

// SetZoneAssignment activates or suspends a zone within a lot. Claims
// against spots tagged with a suspended zone are denied until the zone
// is reactivated.
func SetZoneAssignment(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		lot, err := lots.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query lot")
			return
		}
		if lot == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Lot not found")
			return
		}

		var req ZoneAssignmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if zone, err := lots.GetZoneByID(ctx, req.ZoneID); err != nil || zone == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown zone")
			return
		}

		if err := lots.SetAssignmentActive(ctx, id, req.ZoneID, req.Active); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update zone assignment")
			return
		}

		assignment, err := lots.GetAssignment(ctx, id, req.ZoneID)
		if err != nil || assignment == nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load zone assignment")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(assignment)
	}
}

// ListZones returns the zone catalog.
func ListZones(lots *storage.LotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zones, err := lots.ListZones(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query zones")
			return
		}
		if zones == nil {
			zones = []models.Zone{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zones)
	}
}

// validZoneRef accepts a nil reference; a non-nil one must resolve to
// a known zone.
func validZoneRef(ctx context.Context, lots *storage.LotRepository, id *string) bool {
	if id == nil {
		return true
	}
	zone, err := lots.GetZoneByID(ctx, *id)
	return err == nil && zone != nil
}
