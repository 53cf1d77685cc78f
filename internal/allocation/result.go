// Package allocation implements the spot allocation engine: claim,
// unclaim and status over the permit, spot and history state, applying
// the zone-access policy atomically.
package allocation

import (
	"time"
)

// Reason is the business-rule code attached to a denied operation.
// Denials are results, not errors; they are surfaced verbatim to the
// caller and never retried automatically.
type Reason string

const (
	ReasonNoActivePermit     Reason = "no_active_permit"
	ReasonAlreadyParked      Reason = "already_parked"
	ReasonSpotNotFound       Reason = "spot_not_found"
	ReasonSpotOccupied       Reason = "spot_occupied"
	ReasonSpotInactive       Reason = "spot_inactive"
	ReasonZoneSuspended      Reason = "zone_suspended"
	ReasonCategoryNotAllowed Reason = "category_not_allowed"
	ReasonNotParked          Reason = "not_parked"
)

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	Granted    bool      `json:"granted"`
	Reason     Reason    `json:"reason,omitempty"`
	SpotNumber string    `json:"spot_number,omitempty"`
	LotName    string    `json:"lot_name,omitempty"`
	ZoneName   string    `json:"zone_name,omitempty"`
	ArrivedAt  time.Time `json:"arrived_at,omitempty"`
}

// ReleaseResult is the outcome of an unclaim attempt.
type ReleaseResult struct {
	Released   bool      `json:"released"`
	Reason     Reason    `json:"reason,omitempty"`
	SpotNumber string    `json:"spot_number,omitempty"`
	LotName    string    `json:"lot_name,omitempty"`
	DepartedAt time.Time `json:"departed_at,omitempty"`
}

// StatusView is the read-only account status report.
type StatusView struct {
	HasPermit     bool       `json:"has_permit"`
	Category      string     `json:"category,omitempty"`
	Plate         string     `json:"plate,omitempty"`
	PermitExpires *time.Time `json:"permit_expires,omitempty"`
	IsParked      bool       `json:"is_parked"`
	SpotNumber    string     `json:"spot_number,omitempty"`
	LotName       string     `json:"lot_name,omitempty"`
	ZoneName      string     `json:"zone_name,omitempty"`
	ArrivedAt     *time.Time `json:"arrived_at,omitempty"`
}

func denied(reason Reason) ClaimResult {
	return ClaimResult{Reason: reason}
}
