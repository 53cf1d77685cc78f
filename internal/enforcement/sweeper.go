// Package enforcement implements the periodic eviction and retention
// job: closing sessions whose authorization has lapsed and pruning old
// history.
package enforcement

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
	"github.com/parking-permit-manager/backend/internal/websocket"
)

// Reason explains why the sweeper closed a session.
type Reason string

const (
	ReasonPermitExpired Reason = "permit_expired"
	ReasonZoneViolation Reason = "zone_violation"
)

// Store is the storage surface the sweeper needs. CloseSession is the
// same atomic close the allocation engine uses for unclaim.
type Store interface {
	ListOpenSessions(ctx context.Context) ([]models.OpenSession, error)
	CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// storeAdapter implements Store over the history repository.
type storeAdapter struct {
	history *storage.HistoryRepository
}

// NewStore wires the history repository into the sweeper's Store.
func NewStore(history *storage.HistoryRepository) Store {
	return &storeAdapter{history: history}
}

func (a *storeAdapter) ListOpenSessions(ctx context.Context) ([]models.OpenSession, error) {
	return a.history.ListOpen(ctx)
}

func (a *storeAdapter) CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error {
	return a.history.CloseSession(ctx, historyID, spotID, departedAt)
}

func (a *storeAdapter) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.history.DeleteClosedBefore(ctx, cutoff)
}

// Sweeper evicts occupants whose permit expired or who overstayed the
// zone-mismatch grace period, and prunes closed history past retention.
type Sweeper struct {
	store       Store
	zoneAccess  policy.ZoneAccessPolicy
	grace       time.Duration
	retention   time.Duration
	broadcaster *websocket.EventBroadcaster
}

// NewSweeper creates an enforcement sweeper. The broadcaster may be nil.
func NewSweeper(store Store, zoneAccess policy.ZoneAccessPolicy, grace, retention time.Duration, hub *websocket.Hub) *Sweeper {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Sweeper{
		store:       store,
		zoneAccess:  zoneAccess,
		grace:       grace,
		retention:   retention,
		broadcaster: broadcaster,
	}
}

// eviction pairs a session with the first rule that selected it.
type eviction struct {
	session models.OpenSession
	reason  Reason
}

// Sweep runs both eviction rules over the open sessions and closes the
// selected ones. The two rule passes are merged by history record ID,
// first reason wins, so a session matching both rules is evicted once.
// A failure on one record is logged and does not stop the rest; the
// record is picked up again on the next sweep. Returns the eviction
// count.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.store.ListOpenSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing open sessions: %w", err)
	}

	seen := make(map[string]bool, len(sessions))
	var evictions []eviction

	// Expired-permit rule.
	for _, sess := range sessions {
		if sess.PermitExpiry.Before(now) {
			seen[sess.HistoryID] = true
			evictions = append(evictions, eviction{session: sess, reason: ReasonPermitExpired})
		}
	}

	// Zone-violation rule with grace period: the zone scheduler can
	// retag a spot under a parked vehicle, so eviction waits out the
	// grace window after arrival.
	for _, sess := range sessions {
		if seen[sess.HistoryID] {
			continue
		}
		if s.zoneAccess.Admits(sess.ZoneName, sess.Category) {
			continue
		}
		if now.Sub(sess.ArrivedAt) > s.grace {
			seen[sess.HistoryID] = true
			evictions = append(evictions, eviction{session: sess, reason: ReasonZoneViolation})
		}
	}

	evicted := 0
	for _, ev := range evictions {
		if err := s.store.CloseSession(ctx, ev.session.HistoryID, ev.session.SpotID, now); err != nil {
			log.Printf("Eviction of %s from spot %s failed: %v", ev.session.Plate, ev.session.SpotNumber, err)
			continue
		}
		evicted++

		log.Printf("Evicted %s from spot %s (%s): %s", ev.session.Plate, ev.session.SpotNumber, ev.session.LotName, ev.reason)
		if s.broadcaster != nil {
			s.broadcaster.BroadcastVehicleEvicted(
				ev.session.Plate, ev.session.SpotNumber, ev.session.LotName,
				string(ev.reason), ev.session.ArrivedAt, now,
			)
			s.broadcaster.BroadcastSpotStatusChanged(ev.session.SpotNumber, ev.session.LotName, ev.session.ZoneName, false, true)
		}
	}

	if s.broadcaster != nil && evicted > 0 {
		s.broadcaster.BroadcastSweepCompleted(evicted, 0)
	}

	return evicted, nil
}

// Prune permanently deletes closed history records whose departure is
// older than the retention window. Pure cleanup.
func (s *Sweeper) Prune(ctx context.Context, now time.Time) (int64, error) {
	pruned, err := s.store.DeleteClosedBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, err
	}

	if pruned > 0 {
		log.Printf("Pruned %d parking history records older than %s", pruned, s.retention)
	}

	return pruned, nil
}
