// Package policy holds the read-only rule tables of the parking
// engine: which permit categories a zone admits, how permit durations
// map to expiration times, and the day/night window. All of it is data
// so deployments can swap rules without touching engine logic.
package policy

import (
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// ZoneAccessPolicy maps a zone name to the set of permit categories it
// admits. A nil category set means the zone admits every category.
type ZoneAccessPolicy map[string]map[string]bool

// DefaultZoneAccess returns the reference zone-access table:
// Green admits any category, Gold is faculty-only, H is handicap-only.
func DefaultZoneAccess() ZoneAccessPolicy {
	return ZoneAccessPolicy{
		"Green": nil,
		"Gold":  {models.CategoryFaculty: true},
		"H":     {models.CategoryHandicap: true},
	}
}

// Admits reports whether the zone admits the permit category.
// Unknown zones admit nothing.
func (p ZoneAccessPolicy) Admits(zone, category string) bool {
	allowed, ok := p[zone]
	if !ok {
		return false
	}
	if allowed == nil {
		return true
	}
	return allowed[category]
}

// AllowedZones returns the zones in the table that admit the category.
func (p ZoneAccessPolicy) AllowedZones(category string) []string {
	var zones []string
	for zone := range p {
		if p.Admits(zone, category) {
			zones = append(zones, zone)
		}
	}
	return zones
}

// NightWindow is the local-time window during which a scheduled lot
// carries its night (permissive) zone. The window may wrap midnight;
// the reference default is 19:00 through 06:00.
type NightWindow struct {
	StartHour int
	EndHour   int
}

// DefaultNightWindow returns the reference 19:00-06:00 window.
func DefaultNightWindow() NightWindow {
	return NightWindow{StartHour: 19, EndHour: 6}
}

// Contains reports whether the given hour of day falls in the window.
func (w NightWindow) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	// Wraps midnight, e.g. 19..23 and 0..5
	return hour >= w.StartHour || hour < w.EndHour
}
