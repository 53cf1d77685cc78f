package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// VehicleRepository provides data access for registered vehicles.
type VehicleRepository struct {
	BaseRepository
}

// NewVehicleRepository creates a new vehicle repository.
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new vehicle. The plate number must be unique across
// all vehicles; a duplicate surfaces as an error from the unique index.
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	v.ID = GenerateID()
	v.CreatedAt = r.Now()
	v.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO vehicles (id, account_id, plate, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.AccountID, v.Plate, v.Description, v.CreatedAt, v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}

	return nil
}

// GetByID retrieves a vehicle by its ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	return r.get(ctx, "id = ?", id)
}

// GetByPlate retrieves a vehicle by its plate number.
func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return r.get(ctx, "plate = ?", plate)
}

func (r *VehicleRepository) get(ctx context.Context, where string, arg any) (*models.Vehicle, error) {
	v := &models.Vehicle{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, account_id, plate, description, created_at, updated_at
		FROM vehicles WHERE `+where, arg).Scan(
		&v.ID, &v.AccountID, &v.Plate, &v.Description, &v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying vehicle: %w", err)
	}

	return v, nil
}

// ListByAccount retrieves all vehicles owned by an account.
func (r *VehicleRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Vehicle, error) {
	return r.list(ctx, `
		SELECT id, account_id, plate, description, created_at, updated_at
		FROM vehicles WHERE account_id = ? ORDER BY plate
	`, accountID)
}

// List retrieves all registered vehicles.
func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	return r.list(ctx, `
		SELECT id, account_id, plate, description, created_at, updated_at
		FROM vehicles ORDER BY plate
	`)
}

func (r *VehicleRepository) list(ctx context.Context, query string, args ...any) ([]models.Vehicle, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.AccountID, &v.Plate, &v.Description, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// Update modifies a vehicle's plate and description.
func (r *VehicleRepository) Update(ctx context.Context, v *models.Vehicle) error {
	v.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		UPDATE vehicles SET plate = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, v.Plate, v.Description, v.UpdatedAt, v.ID)

	if err != nil {
		return fmt.Errorf("updating vehicle: %w", err)
	}

	return nil
}

// Delete removes a vehicle. Fails if permits or history reference it.
func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM vehicles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	return nil
}
