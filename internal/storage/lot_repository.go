package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// LotRepository provides data access for lots, zones and zone
// assignments, including the day/night zone reconciliation write.
type LotRepository struct {
	BaseRepository
}

// NewLotRepository creates a new lot repository.
func NewLotRepository(db *DB) *LotRepository {
	return &LotRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new lot.
func (r *LotRepository) Create(ctx context.Context, lot *models.Lot) error {
	lot.ID = GenerateID()
	lot.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO lots (id, name, day_zone_id, night_zone_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, lot.ID, lot.Name, lot.DayZoneID, lot.NightZoneID, lot.CreatedAt)

	if err != nil {
		return fmt.Errorf("inserting lot: %w", err)
	}

	return nil
}

// GetByID retrieves a lot by its ID.
func (r *LotRepository) GetByID(ctx context.Context, id string) (*models.Lot, error) {
	lot := &models.Lot{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, day_zone_id, night_zone_id, created_at
		FROM lots WHERE id = ?
	`, id).Scan(&lot.ID, &lot.Name, &lot.DayZoneID, &lot.NightZoneID, &lot.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying lot: %w", err)
	}

	return lot, nil
}

// List retrieves all lots.
func (r *LotRepository) List(ctx context.Context) ([]models.Lot, error) {
	return r.list(ctx, `
		SELECT id, name, day_zone_id, night_zone_id, created_at
		FROM lots ORDER BY name
	`)
}

// ListScheduled retrieves the lots whose zone is managed by the
// day/night scheduler.
func (r *LotRepository) ListScheduled(ctx context.Context) ([]models.Lot, error) {
	return r.list(ctx, `
		SELECT id, name, day_zone_id, night_zone_id, created_at
		FROM lots
		WHERE day_zone_id IS NOT NULL AND night_zone_id IS NOT NULL
		ORDER BY name
	`)
}

func (r *LotRepository) list(ctx context.Context, query string, args ...any) ([]models.Lot, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lots: %w", err)
	}
	defer rows.Close()

	var lots []models.Lot
	for rows.Next() {
		var lot models.Lot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.DayZoneID, &lot.NightZoneID, &lot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

// Update modifies a lot's name and scheduled-zone configuration.
func (r *LotRepository) Update(ctx context.Context, lot *models.Lot) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE lots SET name = ?, day_zone_id = ?, night_zone_id = ?
		WHERE id = ?
	`, lot.Name, lot.DayZoneID, lot.NightZoneID, lot.ID)

	if err != nil {
		return fmt.Errorf("updating lot: %w", err)
	}

	return nil
}

// Delete removes a lot. Fails while spots still reference it.
func (r *LotRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM lots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting lot: %w", err)
	}
	return nil
}

// GetZoneByID retrieves a zone by its ID.
func (r *LotRepository) GetZoneByID(ctx context.Context, id string) (*models.Zone, error) {
	z := &models.Zone{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name FROM zones WHERE id = ?
	`, id).Scan(&z.ID, &z.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone: %w", err)
	}

	return z, nil
}

// GetZoneByName retrieves a zone by its name.
func (r *LotRepository) GetZoneByName(ctx context.Context, name string) (*models.Zone, error) {
	z := &models.Zone{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name FROM zones WHERE name = ?
	`, name).Scan(&z.ID, &z.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone: %w", err)
	}

	return z, nil
}

// ListZones retrieves all zones.
func (r *LotRepository) ListZones(ctx context.Context) ([]models.Zone, error) {
	rows, err := r.DB().QueryContext(ctx, "SELECT id, name FROM zones ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name); err != nil {
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		zones = append(zones, z)
	}

	return zones, rows.Err()
}

// GetAssignment retrieves the zone assignment for a (lot, zone) pair.
func (r *LotRepository) GetAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error) {
	a := &models.ZoneAssignment{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, lot_id, zone_id, active
		FROM zone_assignments WHERE lot_id = ? AND zone_id = ?
	`, lotID, zoneID).Scan(&a.ID, &a.LotID, &a.ZoneID, &a.Active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone assignment: %w", err)
	}

	return a, nil
}

// SetAssignmentActive creates or updates the assignment for a
// (lot, zone) pair with the given activity flag.
func (r *LotRepository) SetAssignmentActive(ctx context.Context, lotID, zoneID string, active bool) error {
	return setAssignmentActive(ctx, r.DB(), lotID, zoneID, active)
}

func setAssignmentActive(ctx context.Context, q Queryable, lotID, zoneID string, active bool) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO zone_assignments (id, lot_id, zone_id, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lot_id, zone_id) DO UPDATE SET active = excluded.active
	`, GenerateID(), lotID, zoneID, active)

	if err != nil {
		return fmt.Errorf("upserting zone assignment: %w", err)
	}

	return nil
}

// ReconcileZone applies a zone decision to a lot as one transaction:
// every spot in the lot is retagged to the winning zone and forced
// active, the winning (lot, zone) assignment is activated and the
// losing one deactivated. Safe to re-run; a second application in the
// same window changes nothing.
func (r *LotRepository) ReconcileZone(ctx context.Context, lotID, winningZoneID, losingZoneID string, at time.Time) error {
	return r.Transaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE spots SET zone_id = ?, active = 1, updated_at = ?
			WHERE lot_id = ? AND (zone_id != ? OR active = 0)
		`, winningZoneID, at, lotID, winningZoneID)
		if err != nil {
			return fmt.Errorf("retagging spots: %w", err)
		}

		if err := setAssignmentActive(ctx, tx, lotID, winningZoneID, true); err != nil {
			return err
		}
		return setAssignmentActive(ctx, tx, lotID, losingZoneID, false)
	})
}
