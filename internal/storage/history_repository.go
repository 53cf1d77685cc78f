package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// HistoryRepository provides data access for the parking history
// ledger. Opening and closing a session always pairs the history write
// with the spot's occupied flag in a single transaction; those two
// facts are never updated independently.
type HistoryRepository struct {
	BaseRepository
}

// NewHistoryRepository creates a new parking history repository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// OpenSession atomically opens a parking session: marks the spot
// occupied and inserts the open history record. Returns ErrConflict if
// the spot is not claimable (already occupied, or inactive) or the
// vehicle already has an open session — the guarded updates make the
// check-then-write race-free even across processes.
func (r *HistoryRepository) OpenSession(ctx context.Context, vehicleID, spotID string, arrivedAt time.Time) (*models.ParkingHistory, error) {
	h := &models.ParkingHistory{
		ID:        GenerateID(),
		VehicleID: vehicleID,
		SpotID:    spotID,
		ArrivedAt: arrivedAt,
	}

	err := r.Transaction(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE spots SET occupied = 1, updated_at = ?
			WHERE id = ? AND occupied = 0 AND active = 1
		`, arrivedAt, spotID)
		if err != nil {
			return fmt.Errorf("marking spot occupied: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrConflict
		}

		var open int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM parking_history
			WHERE vehicle_id = ? AND departed_at IS NULL
		`, vehicleID).Scan(&open)
		if err != nil {
			return fmt.Errorf("checking open sessions: %w", err)
		}
		if open > 0 {
			return ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO parking_history (id, vehicle_id, spot_id, arrived_at, departed_at)
			VALUES (?, ?, ?, ?, NULL)
		`, h.ID, h.VehicleID, h.SpotID, h.ArrivedAt)
		if err != nil {
			return fmt.Errorf("inserting history record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return h, nil
}

// CloseSession atomically closes a session: sets the departure time on
// the open history record and clears the spot's occupied flag. Returns
// ErrConflict if the record was already closed by a concurrent writer.
func (r *HistoryRepository) CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error {
	return r.Transaction(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE parking_history SET departed_at = ?
			WHERE id = ? AND departed_at IS NULL
		`, departedAt, historyID)
		if err != nil {
			return fmt.Errorf("closing history record: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE spots SET occupied = 0, updated_at = ?
			WHERE id = ?
		`, departedAt, spotID)
		if err != nil {
			return fmt.Errorf("clearing spot occupancy: %w", err)
		}

		return nil
	})
}

// OpenByVehicle retrieves the vehicle's open session joined with spot,
// lot and zone names, or nil if the vehicle is not parked.
func (r *HistoryRepository) OpenByVehicle(ctx context.Context, vehicleID string) (*models.OpenSession, error) {
	return r.getOpen(ctx, "h.vehicle_id = ?", vehicleID)
}

// OpenBySpot retrieves the spot's open session, or nil if vacant.
func (r *HistoryRepository) OpenBySpot(ctx context.Context, spotID string) (*models.OpenSession, error) {
	return r.getOpen(ctx, "h.spot_id = ?", spotID)
}

const openSessionQuery = `
	SELECT h.id, h.vehicle_id, v.plate, h.spot_id, s.spot_number,
	       l.id, l.name, z.name, h.arrived_at,
	       COALESCE(pt.category, ''), COALESCE(p.expires_at, h.arrived_at)
	FROM parking_history h
	JOIN vehicles v ON v.id = h.vehicle_id
	JOIN spots s ON s.id = h.spot_id
	JOIN lots l ON l.id = s.lot_id
	JOIN zones z ON z.id = s.zone_id
	LEFT JOIN permits p ON p.id = (
		SELECT id FROM permits
		WHERE vehicle_id = h.vehicle_id
		ORDER BY expires_at DESC LIMIT 1
	)
	LEFT JOIN permit_types pt ON pt.id = p.permit_type_id
	WHERE h.departed_at IS NULL
`

func scanOpenSession(row interface{ Scan(...any) error }) (*models.OpenSession, error) {
	o := &models.OpenSession{}
	err := row.Scan(
		&o.HistoryID, &o.VehicleID, &o.Plate, &o.SpotID, &o.SpotNumber,
		&o.LotID, &o.LotName, &o.ZoneName, &o.ArrivedAt,
		&o.Category, &o.PermitExpiry,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *HistoryRepository) getOpen(ctx context.Context, cond string, arg any) (*models.OpenSession, error) {
	row := r.DB().QueryRowContext(ctx, openSessionQuery+" AND "+cond, arg)

	o, err := scanOpenSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open session: %w", err)
	}

	return o, nil
}

// ListOpen retrieves every open session with the permit expiration and
// current zone the enforcement sweeper evaluates.
func (r *HistoryRepository) ListOpen(ctx context.Context) ([]models.OpenSession, error) {
	rows, err := r.DB().QueryContext(ctx, openSessionQuery+" ORDER BY h.arrived_at")
	if err != nil {
		return nil, fmt.Errorf("querying open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.OpenSession
	for rows.Next() {
		o, err := scanOpenSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning open session: %w", err)
		}
		sessions = append(sessions, *o)
	}

	return sessions, rows.Err()
}

// ListByVehicle retrieves a vehicle's history, newest first.
func (r *HistoryRepository) ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]models.ParkingHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, vehicle_id, spot_id, arrived_at, departed_at
		FROM parking_history
		WHERE vehicle_id = ?
		ORDER BY arrived_at DESC
		LIMIT ?
	`, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []models.ParkingHistory
	for rows.Next() {
		var h models.ParkingHistory
		if err := rows.Scan(&h.ID, &h.VehicleID, &h.SpotID, &h.ArrivedAt, &h.DepartedAt); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		records = append(records, h)
	}

	return records, rows.Err()
}

// DeleteClosedBefore permanently removes closed history records whose
// departure is older than the cutoff. Returns the number removed.
func (r *HistoryRepository) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB().ExecContext(ctx, `
		DELETE FROM parking_history
		WHERE departed_at IS NOT NULL AND departed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}

	return res.RowsAffected()
}
