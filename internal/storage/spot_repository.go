package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// SpotRepository provides data access for parking spots.
//
// The occupied flag is deliberately not writable here: it only changes
// together with the parking history ledger, inside the transactions in
// HistoryRepository.
type SpotRepository struct {
	BaseRepository
}

// NewSpotRepository creates a new spot repository.
func NewSpotRepository(db *DB) *SpotRepository {
	return &SpotRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new spot, vacant and active by default.
func (r *SpotRepository) Create(ctx context.Context, s *models.Spot) error {
	s.ID = GenerateID()
	s.CreatedAt = r.Now()
	s.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO spots (id, lot_id, zone_id, spot_number, latitude, longitude, occupied, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.LotID, s.ZoneID, s.SpotNumber, s.Latitude, s.Longitude, s.Occupied, s.Active, s.CreatedAt, s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting spot: %w", err)
	}

	return nil
}

const spotDetailColumns = `
	s.id, s.lot_id, s.zone_id, s.spot_number, s.latitude, s.longitude,
	s.occupied, s.active, s.created_at, s.updated_at, l.name, z.name
`

func scanSpotDetail(row interface{ Scan(...any) error }) (*models.SpotDetail, error) {
	d := &models.SpotDetail{}
	err := row.Scan(
		&d.ID, &d.LotID, &d.ZoneID, &d.SpotNumber, &d.Latitude, &d.Longitude,
		&d.Occupied, &d.Active, &d.CreatedAt, &d.UpdatedAt, &d.LotName, &d.ZoneName,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID retrieves a spot with its lot and zone names.
func (r *SpotRepository) GetByID(ctx context.Context, id string) (*models.SpotDetail, error) {
	return r.getDetail(ctx, "s.id = ?", id)
}

// GetByNumber retrieves a spot by its public spot number.
func (r *SpotRepository) GetByNumber(ctx context.Context, spotNumber string) (*models.SpotDetail, error) {
	return r.getDetail(ctx, "s.spot_number = ?", spotNumber)
}

func (r *SpotRepository) getDetail(ctx context.Context, where string, arg any) (*models.SpotDetail, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+spotDetailColumns+`
		FROM spots s
		JOIN lots l ON l.id = s.lot_id
		JOIN zones z ON z.id = s.zone_id
		WHERE `+where, arg)

	d, err := scanSpotDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying spot: %w", err)
	}

	return d, nil
}

// List retrieves the display snapshot of every spot.
func (r *SpotRepository) List(ctx context.Context) ([]models.SpotDetail, error) {
	return r.listDetails(ctx, "1 = 1")
}

// ListByLot retrieves all spots in a lot.
func (r *SpotRepository) ListByLot(ctx context.Context, lotID string) ([]models.SpotDetail, error) {
	return r.listDetails(ctx, "s.lot_id = ?", lotID)
}

func (r *SpotRepository) listDetails(ctx context.Context, where string, args ...any) ([]models.SpotDetail, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+spotDetailColumns+`
		FROM spots s
		JOIN lots l ON l.id = s.lot_id
		JOIN zones z ON z.id = s.zone_id
		WHERE `+where+`
		ORDER BY s.spot_number
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying spots: %w", err)
	}
	defer rows.Close()

	var spots []models.SpotDetail
	for rows.Next() {
		d, err := scanSpotDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning spot: %w", err)
		}
		spots = append(spots, *d)
	}

	return spots, rows.Err()
}

// Update modifies a spot's location fields, zone tag and active flag.
func (r *SpotRepository) Update(ctx context.Context, s *models.Spot) error {
	s.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		UPDATE spots
		SET lot_id = ?, zone_id = ?, spot_number = ?, latitude = ?, longitude = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, s.LotID, s.ZoneID, s.SpotNumber, s.Latitude, s.Longitude, s.Active, s.UpdatedAt, s.ID)

	if err != nil {
		return fmt.Errorf("updating spot: %w", err)
	}

	return nil
}

// Delete removes a spot. Fails while history references it.
func (r *SpotRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM spots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting spot: %w", err)
	}
	return nil
}
