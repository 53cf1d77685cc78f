package models

import (
	"time"
)

// ParkingHistory is one occupancy session: a vehicle on a spot from
// arrival until departure. An open session has a nil DepartedAt.
// Invariants: at most one open session per vehicle, at most one open
// session per spot, and an open session exists iff the spot's occupied
// flag is set.
type ParkingHistory struct {
	ID         string     `json:"id"`
	VehicleID  string     `json:"vehicle_id"`
	SpotID     string     `json:"spot_id"`
	ArrivedAt  time.Time  `json:"arrived_at"`
	DepartedAt *time.Time `json:"departed_at,omitempty"`
}

// IsOpen returns true if the session has no departure recorded.
func (h *ParkingHistory) IsOpen() bool {
	return h.DepartedAt == nil
}

// OpenSession is an open parking history record joined with everything
// the enforcement sweeper needs to decide an eviction: the permit
// expiration covering the vehicle and the spot's current zone.
type OpenSession struct {
	HistoryID    string    `json:"history_id"`
	VehicleID    string    `json:"vehicle_id"`
	Plate        string    `json:"plate"`
	SpotID       string    `json:"spot_id"`
	SpotNumber   string    `json:"spot_number"`
	LotID        string    `json:"lot_id"`
	LotName      string    `json:"lot_name"`
	ZoneName     string    `json:"zone_name"`
	ArrivedAt    time.Time `json:"arrived_at"`
	Category     string    `json:"category"`
	PermitExpiry time.Time `json:"permit_expiry"`
}
