package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// PermitRepository provides data access for permits and permit types.
type PermitRepository struct {
	BaseRepository
}

// NewPermitRepository creates a new permit repository.
func NewPermitRepository(db *DB) *PermitRepository {
	return &PermitRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new permit. The expiration time is computed by the
// caller from the permit type's duration policy.
func (r *PermitRepository) Create(ctx context.Context, p *models.Permit) error {
	p.ID = GenerateID()
	p.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO permits (id, account_id, vehicle_id, permit_type_id, issued_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.AccountID, p.VehicleID, p.PermitTypeID, p.IssuedAt, p.ExpiresAt, p.CreatedAt)

	if err != nil {
		return fmt.Errorf("inserting permit: %w", err)
	}

	return nil
}

// GetByID retrieves a permit by its ID.
func (r *PermitRepository) GetByID(ctx context.Context, id string) (*models.Permit, error) {
	p := &models.Permit{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, account_id, vehicle_id, permit_type_id, issued_at, expires_at, created_at
		FROM permits WHERE id = ?
	`, id).Scan(&p.ID, &p.AccountID, &p.VehicleID, &p.PermitTypeID, &p.IssuedAt, &p.ExpiresAt, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying permit: %w", err)
	}

	return p, nil
}

// ListByAccount retrieves all permits for an account, newest first.
func (r *PermitRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Permit, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, account_id, vehicle_id, permit_type_id, issued_at, expires_at, created_at
		FROM permits WHERE account_id = ? ORDER BY issued_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying permits: %w", err)
	}
	defer rows.Close()

	var permits []models.Permit
	for rows.Next() {
		var p models.Permit
		if err := rows.Scan(&p.ID, &p.AccountID, &p.VehicleID, &p.PermitTypeID, &p.IssuedAt, &p.ExpiresAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning permit: %w", err)
		}
		permits = append(permits, p)
	}

	return permits, rows.Err()
}

// ActiveByAccount resolves the account's active permit together with
// the vehicle and category the allocation engine needs. When an account
// holds several active permits, the most recently issued one wins.
// Returns nil when no permit is active at the given time.
func (r *PermitRepository) ActiveByAccount(ctx context.Context, accountID string, now time.Time) (*models.ActivePermit, error) {
	p := &models.ActivePermit{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT p.id, p.account_id, p.vehicle_id, v.plate, pt.category, pt.duration, p.issued_at, p.expires_at
		FROM permits p
		JOIN vehicles v ON v.id = p.vehicle_id
		JOIN permit_types pt ON pt.id = p.permit_type_id
		WHERE p.account_id = ? AND p.expires_at > ?
		ORDER BY p.issued_at DESC
		LIMIT 1
	`, accountID, now).Scan(
		&p.PermitID, &p.AccountID, &p.VehicleID, &p.Plate,
		&p.Category, &p.Duration, &p.IssuedAt, &p.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active permit: %w", err)
	}

	return p, nil
}

// ActiveByVehicle returns the vehicle's active permit, if any. Used at
// the issue boundary to reject overlapping active permits per vehicle;
// the data layer itself does not enforce this.
func (r *PermitRepository) ActiveByVehicle(ctx context.Context, vehicleID string, now time.Time) (*models.Permit, error) {
	p := &models.Permit{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, account_id, vehicle_id, permit_type_id, issued_at, expires_at, created_at
		FROM permits WHERE vehicle_id = ? AND expires_at > ?
		ORDER BY issued_at DESC
		LIMIT 1
	`, vehicleID, now).Scan(&p.ID, &p.AccountID, &p.VehicleID, &p.PermitTypeID, &p.IssuedAt, &p.ExpiresAt, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying vehicle permit: %w", err)
	}

	return p, nil
}

// GetType retrieves a permit type by its ID.
func (r *PermitRepository) GetType(ctx context.Context, id string) (*models.PermitType, error) {
	t := &models.PermitType{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, category, duration FROM permit_types WHERE id = ?
	`, id).Scan(&t.ID, &t.Category, &t.Duration)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying permit type: %w", err)
	}

	return t, nil
}

// ListTypes retrieves all permit types.
func (r *PermitRepository) ListTypes(ctx context.Context) ([]models.PermitType, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, category, duration FROM permit_types ORDER BY category, duration
	`)
	if err != nil {
		return nil, fmt.Errorf("querying permit types: %w", err)
	}
	defer rows.Close()

	var types []models.PermitType
	for rows.Next() {
		var t models.PermitType
		if err := rows.Scan(&t.ID, &t.Category, &t.Duration); err != nil {
			return nil, fmt.Errorf("scanning permit type: %w", err)
		}
		types = append(types, t)
	}

	return types, rows.Err()
}

// Delete removes a permit.
func (r *PermitRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM permits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting permit: %w", err)
	}
	return nil
}
