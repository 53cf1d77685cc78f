package models

import (
	"time"
)

// Lot is a named physical area containing spots. A lot with both
// DayZoneID and NightZoneID set is time-varying: the zone scheduler
// rewrites its spots' zone between the two on the day/night boundary.
type Lot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DayZoneID   *string   `json:"day_zone_id,omitempty"`
	NightZoneID *string   `json:"night_zone_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsScheduled returns true if the lot's zone is managed by the
// day/night zone scheduler.
func (l *Lot) IsScheduled() bool {
	return l.DayZoneID != nil && l.NightZoneID != nil
}

// Zone is an access-control category label applied to spots, e.g.
// Green, Gold or H. Which permit categories a zone admits is policy,
// not data on the zone itself.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ZoneAssignment is the activation flag between a lot and a zone.
// A zone is only usable in a lot while its assignment is active.
type ZoneAssignment struct {
	ID     string `json:"id"`
	LotID  string `json:"lot_id"`
	ZoneID string `json:"zone_id"`
	Active bool   `json:"active"`
}
