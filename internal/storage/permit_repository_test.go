package storage

import (
	"context"
	"testing"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

func TestActiveByAccountPicksMostRecentlyIssued(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	vehicles := NewVehicleRepository(db)
	permits := NewPermitRepository(db)

	car := &models.Vehicle{AccountID: "acct-1", Plate: "AAA-111"}
	if err := vehicles.Create(ctx, car); err != nil {
		t.Fatalf("creating vehicle: %v", err)
	}

	older := &models.Permit{
		AccountID:    "acct-1",
		VehicleID:    car.ID,
		PermitTypeID: "pt-student-yearly",
		IssuedAt:     now.Add(-48 * time.Hour),
		ExpiresAt:    now.Add(300 * 24 * time.Hour),
	}
	newer := &models.Permit{
		AccountID:    "acct-1",
		VehicleID:    car.ID,
		PermitTypeID: "pt-faculty-semester",
		IssuedAt:     now.Add(-time.Hour),
		ExpiresAt:    now.Add(100 * 24 * time.Hour),
	}
	expired := &models.Permit{
		AccountID:    "acct-1",
		VehicleID:    car.ID,
		PermitTypeID: "pt-guest-hourly",
		IssuedAt:     now.Add(-30 * time.Minute),
		ExpiresAt:    now.Add(-time.Minute),
	}
	for _, p := range []*models.Permit{older, newer, expired} {
		if err := permits.Create(ctx, p); err != nil {
			t.Fatalf("creating permit: %v", err)
		}
	}

	active, err := permits.ActiveByAccount(ctx, "acct-1", now)
	if err != nil {
		t.Fatalf("ActiveByAccount: %v", err)
	}
	if active == nil {
		t.Fatal("no active permit resolved")
	}
	if active.PermitID != newer.ID {
		t.Errorf("resolved permit %s, want the most recently issued active one %s", active.PermitID, newer.ID)
	}
	if active.Category != models.CategoryFaculty || active.Plate != "AAA-111" {
		t.Errorf("joined fields wrong: %+v", active)
	}
}

func TestActiveByAccountNilWhenAllExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	vehicles := NewVehicleRepository(db)
	permits := NewPermitRepository(db)

	car := &models.Vehicle{AccountID: "acct-1", Plate: "AAA-111"}
	if err := vehicles.Create(ctx, car); err != nil {
		t.Fatalf("creating vehicle: %v", err)
	}
	p := &models.Permit{
		AccountID:    "acct-1",
		VehicleID:    car.ID,
		PermitTypeID: "pt-guest-daily",
		IssuedAt:     now.Add(-25 * time.Hour),
		ExpiresAt:    now.Add(-time.Hour),
	}
	if err := permits.Create(ctx, p); err != nil {
		t.Fatalf("creating permit: %v", err)
	}

	active, err := permits.ActiveByAccount(ctx, "acct-1", now)
	if err != nil {
		t.Fatalf("ActiveByAccount: %v", err)
	}
	if active != nil {
		t.Fatalf("expired permit resolved as active: %+v", active)
	}
}
