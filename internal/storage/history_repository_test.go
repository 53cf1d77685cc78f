package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewMemoryDB()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return db
}

// fixture is the minimum world for session tests: one lot in the Green
// zone with two spots, and two registered vehicles.
type fixture struct {
	vehicles *VehicleRepository
	spots    *SpotRepository
	history  *HistoryRepository

	car1, car2   *models.Vehicle
	spot1, spot2 *models.Spot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)

	f := &fixture{
		vehicles: NewVehicleRepository(db),
		spots:    NewSpotRepository(db),
		history:  NewHistoryRepository(db),
	}
	lots := NewLotRepository(db)

	lot := &models.Lot{Name: "North Lot"}
	if err := lots.Create(ctx, lot); err != nil {
		t.Fatalf("creating lot: %v", err)
	}

	f.car1 = &models.Vehicle{AccountID: "acct-1", Plate: "AAA-111"}
	f.car2 = &models.Vehicle{AccountID: "acct-2", Plate: "BBB-222"}
	for _, v := range []*models.Vehicle{f.car1, f.car2} {
		if err := f.vehicles.Create(ctx, v); err != nil {
			t.Fatalf("creating vehicle: %v", err)
		}
	}

	f.spot1 = &models.Spot{LotID: lot.ID, ZoneID: "zone-green", SpotNumber: "A-1", Active: true}
	f.spot2 = &models.Spot{LotID: lot.ID, ZoneID: "zone-green", SpotNumber: "A-2", Active: true}
	for _, s := range []*models.Spot{f.spot1, f.spot2} {
		if err := f.spots.Create(ctx, s); err != nil {
			t.Fatalf("creating spot: %v", err)
		}
	}

	return f
}

func (f *fixture) mustOccupied(t *testing.T, spotID string, want bool) {
	t.Helper()
	spot, err := f.spots.GetByID(context.Background(), spotID)
	if err != nil || spot == nil {
		t.Fatalf("loading spot: %v", err)
	}
	if spot.Occupied != want {
		t.Fatalf("spot occupied = %v, want %v", spot.Occupied, want)
	}
}

func TestOpenSessionMarksSpotOccupied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	f.mustOccupied(t, f.spot1.ID, true)

	open, err := f.history.OpenByVehicle(ctx, f.car1.ID)
	if err != nil {
		t.Fatalf("OpenByVehicle: %v", err)
	}
	if open == nil || open.HistoryID != session.ID {
		t.Fatalf("open session = %+v, want history %s", open, session.ID)
	}
	if open.SpotNumber != "A-1" || open.LotName != "North Lot" || open.ZoneName != "Green" {
		t.Errorf("joined names wrong: %+v", open)
	}
}

func TestOpenSessionConflictsOnOccupiedSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, now); err != nil {
		t.Fatalf("first OpenSession: %v", err)
	}

	_, err := f.history.OpenSession(ctx, f.car2.ID, f.spot1.ID, now)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second OpenSession err = %v, want ErrConflict", err)
	}

	// The loser must not have left a second open record behind.
	open, err := f.history.OpenBySpot(ctx, f.spot1.ID)
	if err != nil {
		t.Fatalf("OpenBySpot: %v", err)
	}
	if open == nil || open.VehicleID != f.car1.ID {
		t.Fatalf("spot session = %+v, want vehicle %s", open, f.car1.ID)
	}
}

func TestOpenSessionRollsBackWhenVehicleAlreadyParked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, now); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	// Same vehicle against a second, vacant spot. The transaction has
	// already marked spot2 occupied when the open-session check fails;
	// the rollback must undo that.
	_, err := f.history.OpenSession(ctx, f.car1.ID, f.spot2.ID, now)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("OpenSession err = %v, want ErrConflict", err)
	}
	f.mustOccupied(t, f.spot2.ID, false)
}

func TestOpenSessionConflictsOnInactiveSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.spot1.Active = false
	if err := f.spots.Update(ctx, f.spot1); err != nil {
		t.Fatalf("deactivating spot: %v", err)
	}

	_, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, time.Now().UTC())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("OpenSession err = %v, want ErrConflict", err)
	}
	f.mustOccupied(t, f.spot1.ID, false)
}

func TestCloseSessionFreesSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	session, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, now)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	if err := f.history.CloseSession(ctx, session.ID, f.spot1.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	f.mustOccupied(t, f.spot1.ID, false)
	open, err := f.history.OpenByVehicle(ctx, f.car1.ID)
	if err != nil {
		t.Fatalf("OpenByVehicle: %v", err)
	}
	if open != nil {
		t.Fatalf("vehicle still parked: %+v", open)
	}

	// Closing again is a conflict, not a silent success.
	err = f.history.CloseSession(ctx, session.ID, f.spot1.ID, now.Add(2*time.Hour))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second CloseSession err = %v, want ErrConflict", err)
	}

	// The spot is reclaimable by another vehicle.
	if _, err := f.history.OpenSession(ctx, f.car2.ID, f.spot1.ID, now.Add(3*time.Hour)); err != nil {
		t.Fatalf("reclaim OpenSession: %v", err)
	}
}

func TestDeleteClosedBeforeKeepsOpenSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old, err := f.history.OpenSession(ctx, f.car1.ID, f.spot1.ID, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := f.history.CloseSession(ctx, old.ID, f.spot1.ID, now.Add(-47*time.Hour)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if _, err := f.history.OpenSession(ctx, f.car2.ID, f.spot2.ID, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	pruned, err := f.history.DeleteClosedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteClosedBefore: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}

	// The open session survives regardless of its age.
	open, err := f.history.OpenByVehicle(ctx, f.car2.ID)
	if err != nil || open == nil {
		t.Fatalf("open session lost: %v %v", open, err)
	}
	records, err := f.history.ListByVehicle(ctx, f.car1.ID, 0)
	if err != nil {
		t.Fatalf("ListByVehicle: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("pruned history still listed: %d records", len(records))
	}
}
