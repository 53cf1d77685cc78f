package allocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/websocket"
)

// claimRetries bounds the transparent retries on a storage conflict
// before the contention is surfaced as a spot_occupied denial.
const claimRetries = 3

// Engine orchestrates claim, unclaim and status. All spot/history
// mutation funnels through here (and the background jobs); handlers
// never write those tables directly.
type Engine struct {
	store       Store
	zoneAccess  policy.ZoneAccessPolicy
	broadcaster *websocket.EventBroadcaster

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an allocation engine. The broadcaster may be nil
// when no event feed is attached.
func NewEngine(store Store, zoneAccess policy.ZoneAccessPolicy, hub *websocket.Hub) *Engine {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Engine{
		store:       store,
		zoneAccess:  zoneAccess,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Claim attempts to park the account's permitted vehicle on the spot
// with the given public number.
//
// Preconditions are checked in order, first failure wins, ordered from
// permit-level to spot-level to policy-level so the denial is specific
// without leaking spot state to callers who fail earlier checks. No
// state changes before every check has passed.
func (e *Engine) Claim(ctx context.Context, accountID, spotNumber string) (ClaimResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := e.tryClaim(ctx, accountID, spotNumber)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return ClaimResult{}, err
		}
		if attempt >= claimRetries {
			// Persistent contention means somebody else keeps winning
			// the spot; report it the way a plain occupancy check would.
			log.Printf("Claim on spot %s still conflicting after %d retries", spotNumber, attempt)
			return denied(ReasonSpotOccupied), nil
		}
	}
}

func (e *Engine) tryClaim(ctx context.Context, accountID, spotNumber string) (ClaimResult, error) {
	now := e.now()

	// 1. Active permit, with its vehicle and category.
	permit, err := e.store.ActivePermitByAccount(ctx, accountID, now)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("resolving permit: %w", err)
	}
	if permit == nil {
		return denied(ReasonNoActivePermit), nil
	}

	// 2. The vehicle must not be parked elsewhere.
	open, err := e.store.OpenSessionByVehicle(ctx, permit.VehicleID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("checking open session: %w", err)
	}
	if open != nil {
		return denied(ReasonAlreadyParked), nil
	}

	// 3. Resolve the spot by its public number.
	spot, err := e.store.SpotByNumber(ctx, spotNumber)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("resolving spot: %w", err)
	}
	if spot == nil {
		return denied(ReasonSpotNotFound), nil
	}

	// 4. Spot must be vacant and in service.
	if spot.Occupied {
		return denied(ReasonSpotOccupied), nil
	}
	if !spot.Active {
		return denied(ReasonSpotInactive), nil
	}

	// 5. The spot's (lot, zone) assignment must be active.
	assignment, err := e.store.ZoneAssignment(ctx, spot.LotID, spot.ZoneID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("resolving zone assignment: %w", err)
	}
	if assignment == nil || !assignment.Active {
		return denied(ReasonZoneSuspended), nil
	}

	// 6. The zone must admit the permit's category.
	if !e.zoneAccess.Admits(spot.ZoneName, permit.Category) {
		return denied(ReasonCategoryNotAllowed), nil
	}

	// 7. Open the session: history record and occupied flag commit
	// together or not at all. A conflict here means we lost a race
	// after the reads above; the caller retries.
	session, err := e.store.OpenSession(ctx, permit.VehicleID, spot.ID, now)
	if err != nil {
		return ClaimResult{}, err
	}

	log.Printf("Claim granted: %s on spot %s (%s / %s)", permit.Plate, spot.SpotNumber, spot.LotName, spot.ZoneName)
	if e.broadcaster != nil {
		e.broadcaster.BroadcastClaimGranted(permit.Plate, spot.SpotNumber, spot.LotName, spot.ZoneName, session.ArrivedAt)
		e.broadcaster.BroadcastSpotStatusChanged(spot.SpotNumber, spot.LotName, spot.ZoneName, true, spot.Active)
	}

	return ClaimResult{
		Granted:    true,
		SpotNumber: spot.SpotNumber,
		LotName:    spot.LotName,
		ZoneName:   spot.ZoneName,
		ArrivedAt:  session.ArrivedAt,
	}, nil
}

// Unclaim releases the account's current parking session.
func (e *Engine) Unclaim(ctx context.Context, accountID string) (ReleaseResult, error) {
	now := e.now()

	permit, err := e.store.ActivePermitByAccount(ctx, accountID, now)
	if err != nil {
		return ReleaseResult{}, fmt.Errorf("resolving permit: %w", err)
	}
	if permit == nil {
		return ReleaseResult{Reason: ReasonNoActivePermit}, nil
	}

	open, err := e.store.OpenSessionByVehicle(ctx, permit.VehicleID)
	if err != nil {
		return ReleaseResult{}, fmt.Errorf("finding open session: %w", err)
	}
	if open == nil {
		return ReleaseResult{Reason: ReasonNotParked}, nil
	}

	if err := e.store.CloseSession(ctx, open.HistoryID, open.SpotID, now); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Closed concurrently, e.g. by the enforcement sweeper.
			return ReleaseResult{Reason: ReasonNotParked}, nil
		}
		return ReleaseResult{}, err
	}

	log.Printf("Claim released: %s left spot %s (%s)", open.Plate, open.SpotNumber, open.LotName)
	if e.broadcaster != nil {
		e.broadcaster.BroadcastClaimReleased(open.Plate, open.SpotNumber, open.LotName, now)
		e.broadcaster.BroadcastSpotStatusChanged(open.SpotNumber, open.LotName, open.ZoneName, false, true)
	}

	return ReleaseResult{
		Released:   true,
		SpotNumber: open.SpotNumber,
		LotName:    open.LotName,
		DepartedAt: now,
	}, nil
}

// Status reports the account's permit and parking state. Read-only.
func (e *Engine) Status(ctx context.Context, accountID string) (StatusView, error) {
	now := e.now()

	permit, err := e.store.ActivePermitByAccount(ctx, accountID, now)
	if err != nil {
		return StatusView{}, fmt.Errorf("resolving permit: %w", err)
	}
	if permit == nil {
		return StatusView{}, nil
	}

	view := StatusView{
		HasPermit:     true,
		Category:      permit.Category,
		Plate:         permit.Plate,
		PermitExpires: &permit.ExpiresAt,
	}

	open, err := e.store.OpenSessionByVehicle(ctx, permit.VehicleID)
	if err != nil {
		return StatusView{}, fmt.Errorf("finding open session: %w", err)
	}
	if open != nil {
		view.IsParked = true
		view.SpotNumber = open.SpotNumber
		view.LotName = open.LotName
		view.ZoneName = open.ZoneName
		arrived := open.ArrivedAt
		view.ArrivedAt = &arrived
	}

	return view, nil
}

// SpotView is one row of the display snapshot.
type SpotView struct {
	SpotNumber string   `json:"spot_number"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Occupied   bool     `json:"occupied"`
	Active     bool     `json:"active"`
	ZoneName   string   `json:"zone_name"`
	LotName    string   `json:"lot_name"`
}

// ListSpots returns a read-only snapshot of every spot for display.
func (e *Engine) ListSpots(ctx context.Context) ([]SpotView, error) {
	spots, err := e.store.ListSpots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spots: %w", err)
	}

	views := make([]SpotView, 0, len(spots))
	for _, s := range spots {
		views = append(views, SpotView{
			SpotNumber: s.SpotNumber,
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			Occupied:   s.Occupied,
			Active:     s.Active,
			ZoneName:   s.ZoneName,
			LotName:    s.LotName,
		})
	}

	return views, nil
}
