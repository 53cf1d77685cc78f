// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/parking-permit-manager/backend/internal/allocation"
	"github.com/parking-permit-manager/backend/internal/api/middleware"
)

// ClaimRequest is the body of a claim attempt.
type ClaimRequest struct {
	AccountID  string `json:"account_id"`
	SpotNumber string `json:"spot_number"`
}

// ReleaseRequest is the body of an unclaim attempt.
type ReleaseRequest struct {
	AccountID string `json:"account_id"`
}

// Claim attempts to park the account's permitted vehicle on a spot.
// A business-rule denial comes back as 409 with the reason code in the
// body; only malformed requests and storage failures are HTTP errors.
func Claim(engine *allocation.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.AccountID == "" || req.SpotNumber == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "account_id and spot_number are required")
			return
		}

		result, err := engine.Claim(r.Context(), req.AccountID, req.SpotNumber)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Claim failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !result.Granted {
			w.WriteHeader(http.StatusConflict)
		}
		json.NewEncoder(w).Encode(result)
	}
}

// Release ends the account's open parking session.
func Release(engine *allocation.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReleaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.AccountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "account_id is required")
			return
		}

		result, err := engine.Unclaim(r.Context(), req.AccountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Release failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !result.Released {
			w.WriteHeader(http.StatusConflict)
		}
		json.NewEncoder(w).Encode(result)
	}
}

// AccountStatus reports the account's permit and parking state.
func AccountStatus(engine *allocation.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := mux.Vars(r)["accountID"]

		view, err := engine.Status(r.Context(), accountID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load account status")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view)
	}
}
