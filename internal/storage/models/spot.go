package models

import (
	"time"
)

// Spot is a single physical parking space, the unit of allocation.
// The occupied flag is only written together with the matching parking
// history record; the zone tag is only written by the zone scheduler
// and admin updates, never by claims.
type Spot struct {
	ID         string    `json:"id"`
	LotID      string    `json:"lot_id"`
	ZoneID     string    `json:"zone_id"`
	SpotNumber string    `json:"spot_number"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Occupied   bool      `json:"occupied"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SpotDetail is a spot joined with its lot and zone names, the shape
// the allocation engine and the display snapshot work with.
type SpotDetail struct {
	Spot
	LotName  string `json:"lot_name"`
	ZoneName string `json:"zone_name"`
}
