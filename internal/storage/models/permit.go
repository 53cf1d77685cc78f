package models

import (
	"time"
)

// Permit category constants. The category gates which zones admit the
// permit; see the policy package for the zone-access table.
const (
	CategoryFaculty  = "Faculty"
	CategoryStudent  = "Student"
	CategoryGuest    = "Guest"
	CategoryHandicap = "Handicap"
)

// Permit duration constants. The duration determines how the expiration
// time is computed from the issue time.
const (
	DurationYearly   = "yearly"
	DurationSemester = "semester"
	DurationDaily    = "daily"
	DurationHourly   = "hourly"
)

// PermitType is a (category, duration) pair, e.g. (Faculty, yearly).
type PermitType struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Duration string `json:"duration"`
}

// Permit is a time-bounded authorization for one vehicle to seek
// parking. It belongs to one account and references exactly one vehicle
// and one permit type.
type Permit struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	VehicleID    string    `json:"vehicle_id"`
	PermitTypeID string    `json:"permit_type_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsActive returns true if the permit has not expired at the given time.
func (p *Permit) IsActive(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}

// ActivePermit is a permit joined with the fields the allocation engine
// needs to evaluate a claim: the vehicle it covers and its category.
type ActivePermit struct {
	PermitID  string    `json:"permit_id"`
	AccountID string    `json:"account_id"`
	VehicleID string    `json:"vehicle_id"`
	Plate     string    `json:"plate"`
	Category  string    `json:"category"`
	Duration  string    `json:"duration"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
