// Package zone implements the day/night zone reconciliation for
// scheduled lots: during the night window a lot carries its permissive
// zone, during the day its restricted one.
package zone

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// Store is the storage surface the reconciler needs. ReconcileZone must
// apply the spot retag and both assignment writes as one transaction.
type Store interface {
	ListScheduledLots(ctx context.Context) ([]models.Lot, error)
	ZoneByID(ctx context.Context, zoneID string) (*models.Zone, error)
	ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error)
	ReconcileZone(ctx context.Context, lotID, winningZoneID, losingZoneID string, at time.Time) error
}

// storeAdapter implements Store over the lot repository.
type storeAdapter struct {
	lots *storage.LotRepository
}

// NewStore wires the lot repository into the reconciler's Store.
func NewStore(lots *storage.LotRepository) Store {
	return &storeAdapter{lots: lots}
}

func (a *storeAdapter) ListScheduledLots(ctx context.Context) ([]models.Lot, error) {
	return a.lots.ListScheduled(ctx)
}

func (a *storeAdapter) ZoneByID(ctx context.Context, zoneID string) (*models.Zone, error) {
	return a.lots.GetZoneByID(ctx, zoneID)
}

func (a *storeAdapter) ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error) {
	return a.lots.GetAssignment(ctx, lotID, zoneID)
}

func (a *storeAdapter) ReconcileZone(ctx context.Context, lotID, winningZoneID, losingZoneID string, at time.Time) error {
	return a.lots.ReconcileZone(ctx, lotID, winningZoneID, losingZoneID, at)
}

// Change records one lot whose zone assignment flipped during a run.
type Change struct {
	LotName  string
	ZoneName string
}

// Reconciler decides and applies the winning zone for scheduled lots.
type Reconciler struct {
	store  Store
	window policy.NightWindow
}

// NewReconciler creates a reconciler with the given night window.
func NewReconciler(store Store, window policy.NightWindow) *Reconciler {
	return &Reconciler{store: store, window: window}
}

// ReconcileLot applies the day/night decision to one lot: every spot
// is retagged to the winning zone and forced active, the winning
// (lot, zone) assignment is activated and the losing one deactivated,
// all in one transaction. Running it twice in the same window is a
// no-op the second time. Returns whether the assignment flipped.
func (r *Reconciler) ReconcileLot(ctx context.Context, lot models.Lot, now time.Time) (bool, string, error) {
	if !lot.IsScheduled() {
		return false, "", fmt.Errorf("lot %s is not zone-scheduled", lot.Name)
	}

	winningID, losingID := *lot.DayZoneID, *lot.NightZoneID
	if r.window.Contains(now.Hour()) {
		winningID, losingID = *lot.NightZoneID, *lot.DayZoneID
	}

	winning, err := r.store.ZoneByID(ctx, winningID)
	if err != nil {
		return false, "", fmt.Errorf("resolving winning zone: %w", err)
	}
	if winning == nil {
		return false, "", fmt.Errorf("lot %s references unknown zone %s", lot.Name, winningID)
	}

	// Flip detection only; the writes below run either way so a
	// partially applied previous run self-heals.
	assignment, err := r.store.ZoneAssignment(ctx, lot.ID, winningID)
	if err != nil {
		return false, "", fmt.Errorf("checking assignment: %w", err)
	}
	flipped := assignment == nil || !assignment.Active

	if err := r.store.ReconcileZone(ctx, lot.ID, winningID, losingID, now); err != nil {
		return false, "", fmt.Errorf("reconciling lot %s: %w", lot.Name, err)
	}

	return flipped, winning.Name, nil
}

// ReconcileAll runs the decision for every scheduled lot, returning the
// lots whose zone flipped. A failure on one lot does not stop the rest.
func (r *Reconciler) ReconcileAll(ctx context.Context, now time.Time) ([]Change, error) {
	lots, err := r.store.ListScheduledLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled lots: %w", err)
	}

	var changes []Change
	for _, lot := range lots {
		flipped, zoneName, err := r.ReconcileLot(ctx, lot, now)
		if err != nil {
			log.Printf("Zone reconciliation failed for lot %s: %v", lot.Name, err)
			continue
		}
		if flipped {
			log.Printf("Lot %s reassigned to zone %s", lot.Name, zoneName)
			changes = append(changes, Change{LotName: lot.Name, ZoneName: zoneName})
		}
	}

	return changes, nil
}
