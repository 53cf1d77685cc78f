// Package models defines the persisted entities of the parking engine.
package models

import (
	"time"
)

// Vehicle is a registered vehicle owned by exactly one account.
// The plate number is unique across all vehicles, not just per owner.
type Vehicle struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Plate       string    `json:"plate"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
