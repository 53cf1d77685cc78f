package zone

import (
	"context"
	"testing"
	"time"

	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

type fakeZoneStore struct {
	lots        []models.Lot
	zones       map[string]string // zone ID -> name
	assignments map[string]bool   // lotID+"/"+zoneID -> active
	spotZones   map[string]string // spot ID -> zone ID
	spotActive  map[string]bool   // spot ID -> active flag
	spotLots    map[string]string // spot ID -> lot ID

	reconcileCalls int
}

func newFakeZoneStore() *fakeZoneStore {
	return &fakeZoneStore{
		zones:       map[string]string{"zone-gold": "Gold", "zone-green": "Green"},
		assignments: map[string]bool{},
		spotZones:   map[string]string{},
		spotActive:  map[string]bool{},
		spotLots:    map[string]string{},
	}
}

func (s *fakeZoneStore) ListScheduledLots(ctx context.Context) ([]models.Lot, error) {
	return s.lots, nil
}

func (s *fakeZoneStore) ZoneByID(ctx context.Context, zoneID string) (*models.Zone, error) {
	name, ok := s.zones[zoneID]
	if !ok {
		return nil, nil
	}
	return &models.Zone{ID: zoneID, Name: name}, nil
}

func (s *fakeZoneStore) ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error) {
	active, ok := s.assignments[lotID+"/"+zoneID]
	if !ok {
		return nil, nil
	}
	return &models.ZoneAssignment{LotID: lotID, ZoneID: zoneID, Active: active}, nil
}

func (s *fakeZoneStore) ReconcileZone(ctx context.Context, lotID, winningZoneID, losingZoneID string, at time.Time) error {
	s.reconcileCalls++
	for spotID, spotLot := range s.spotLots {
		if spotLot == lotID {
			s.spotZones[spotID] = winningZoneID
			s.spotActive[spotID] = true
		}
	}
	s.assignments[lotID+"/"+winningZoneID] = true
	s.assignments[lotID+"/"+losingZoneID] = false
	return nil
}

func (s *fakeZoneStore) snapshot() map[string]any {
	snap := map[string]any{}
	for k, v := range s.assignments {
		snap["a/"+k] = v
	}
	for k, v := range s.spotZones {
		snap["z/"+k] = v
	}
	for k, v := range s.spotActive {
		snap["f/"+k] = v
	}
	return snap
}

func scheduledLot() models.Lot {
	day, night := "zone-gold", "zone-green"
	return models.Lot{ID: "lot-3", Name: "North Lot", DayZoneID: &day, NightZoneID: &night}
}

func setupReconciler() (*Reconciler, *fakeZoneStore) {
	s := newFakeZoneStore()
	s.lots = []models.Lot{scheduledLot()}
	s.spotLots["spot-1"] = "lot-3"
	s.spotLots["spot-2"] = "lot-3"
	s.spotZones["spot-1"] = "zone-gold"
	s.spotZones["spot-2"] = "zone-gold"
	s.spotActive["spot-1"] = true
	s.spotActive["spot-2"] = false
	return NewReconciler(s, policy.DefaultNightWindow()), s
}

func TestReconcileDaytimePicksRestrictedZone(t *testing.T) {
	r, s := setupReconciler()
	noon := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	flipped, zoneName, err := r.ReconcileLot(context.Background(), s.lots[0], noon)
	if err != nil {
		t.Fatalf("ReconcileLot: %v", err)
	}
	if !flipped {
		t.Error("expected first reconciliation to flip the assignment")
	}
	if zoneName != "Gold" {
		t.Errorf("winning zone = %q, want Gold", zoneName)
	}
	if !s.assignments["lot-3/zone-gold"] || s.assignments["lot-3/zone-green"] {
		t.Errorf("unexpected assignment state: %v", s.assignments)
	}
	if !s.spotActive["spot-2"] {
		t.Error("reconciliation must force spots active")
	}
}

func TestReconcileNighttimePicksPermissiveZone(t *testing.T) {
	r, s := setupReconciler()
	night := time.Date(2026, 4, 10, 22, 0, 0, 0, time.UTC)

	_, zoneName, err := r.ReconcileLot(context.Background(), s.lots[0], night)
	if err != nil {
		t.Fatalf("ReconcileLot: %v", err)
	}
	if zoneName != "Green" {
		t.Errorf("winning zone = %q, want Green", zoneName)
	}
	for spotID, zoneID := range s.spotZones {
		if zoneID != "zone-green" {
			t.Errorf("spot %s zone = %s, want zone-green", spotID, zoneID)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	r, s := setupReconciler()
	noon := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	if _, _, err := r.ReconcileLot(context.Background(), s.lots[0], noon); err != nil {
		t.Fatalf("first run: %v", err)
	}
	after := s.snapshot()

	flipped, _, err := r.ReconcileLot(context.Background(), s.lots[0], noon)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if flipped {
		t.Error("second run in the same window must not report a flip")
	}

	for k, v := range s.snapshot() {
		if after[k] != v {
			t.Errorf("state %s changed across idempotent rerun: %v -> %v", k, after[k], v)
		}
	}
}

func TestReconcileAllSkipsFailingLot(t *testing.T) {
	r, s := setupReconciler()
	badDay := "zone-missing"
	badNight := "zone-green"
	s.lots = append([]models.Lot{{ID: "lot-bad", Name: "Bad Lot", DayZoneID: &badDay, NightZoneID: &badNight}}, s.lots...)

	noon := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	changes, err := r.ReconcileAll(context.Background(), noon)
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if len(changes) != 1 || changes[0].LotName != "North Lot" {
		t.Fatalf("expected the healthy lot to reconcile, got %v", changes)
	}
}

func TestReconcileRejectsUnscheduledLot(t *testing.T) {
	r, _ := setupReconciler()

	if _, _, err := r.ReconcileLot(context.Background(), models.Lot{Name: "Plain"}, time.Now()); err == nil {
		t.Fatal("expected error for lot without day/night zones")
	}
}
