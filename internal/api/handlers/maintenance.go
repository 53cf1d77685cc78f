package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/parking-permit-manager/backend/internal/api/middleware"
	"github.com/parking-permit-manager/backend/internal/enforcement"
	"github.com/parking-permit-manager/backend/internal/zone"
)

// maintenanceNow resolves the effective time for a manual maintenance
// trigger. The now query parameter (RFC 3339) overrides the clock so
// operators can replay a boundary.
func maintenanceNow(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// ReconcileZones runs one zone reconciliation pass immediately.
func ReconcileZones(reconciler *zone.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now, err := maintenanceNow(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "now must be RFC 3339")
			return
		}

		changes, err := reconciler.ReconcileAll(r.Context(), now)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Zone reconciliation failed")
			return
		}
		if changes == nil {
			changes = []zone.Change{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"changes": changes,
		})
	}
}

// RunSweep runs one enforcement sweep immediately.
func RunSweep(sweeper *enforcement.Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now, err := maintenanceNow(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "now must be RFC 3339")
			return
		}

		evicted, err := sweeper.Sweep(r.Context(), now)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Sweep failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"evicted": evicted,
		})
	}
}

// RunPrune deletes closed history past the retention window.
func RunPrune(sweeper *enforcement.Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now, err := maintenanceNow(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "now must be RFC 3339")
			return
		}

		pruned, err := sweeper.Prune(r.Context(), now)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Prune failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{
			"pruned": pruned,
		})
	}
}
