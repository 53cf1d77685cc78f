package allocation

import (
	"context"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// Store is the narrow transactional surface the engine needs. The
// storage repositories satisfy it through StoreAdapter; tests use an
// in-memory fake. OpenSession and CloseSession must be atomic with the
// spot's occupied flag and return storage.ErrConflict on a lost race.
type Store interface {
	ActivePermitByAccount(ctx context.Context, accountID string, now time.Time) (*models.ActivePermit, error)
	OpenSessionByVehicle(ctx context.Context, vehicleID string) (*models.OpenSession, error)
	SpotByNumber(ctx context.Context, spotNumber string) (*models.SpotDetail, error)
	ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error)
	OpenSession(ctx context.Context, vehicleID, spotID string, arrivedAt time.Time) (*models.ParkingHistory, error)
	CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error
	ListSpots(ctx context.Context) ([]models.SpotDetail, error)
}

// StoreAdapter implements Store over the SQLite repositories.
type StoreAdapter struct {
	permits *storage.PermitRepository
	spots   *storage.SpotRepository
	lots    *storage.LotRepository
	history *storage.HistoryRepository
}

// NewStoreAdapter wires the repositories into the engine's Store.
func NewStoreAdapter(
	permits *storage.PermitRepository,
	spots *storage.SpotRepository,
	lots *storage.LotRepository,
	history *storage.HistoryRepository,
) *StoreAdapter {
	return &StoreAdapter{
		permits: permits,
		spots:   spots,
		lots:    lots,
		history: history,
	}
}

func (a *StoreAdapter) ActivePermitByAccount(ctx context.Context, accountID string, now time.Time) (*models.ActivePermit, error) {
	return a.permits.ActiveByAccount(ctx, accountID, now)
}

func (a *StoreAdapter) OpenSessionByVehicle(ctx context.Context, vehicleID string) (*models.OpenSession, error) {
	return a.history.OpenByVehicle(ctx, vehicleID)
}

func (a *StoreAdapter) SpotByNumber(ctx context.Context, spotNumber string) (*models.SpotDetail, error) {
	return a.spots.GetByNumber(ctx, spotNumber)
}

func (a *StoreAdapter) ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error) {
	return a.lots.GetAssignment(ctx, lotID, zoneID)
}

func (a *StoreAdapter) OpenSession(ctx context.Context, vehicleID, spotID string, arrivedAt time.Time) (*models.ParkingHistory, error) {
	return a.history.OpenSession(ctx, vehicleID, spotID, arrivedAt)
}

func (a *StoreAdapter) CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error {
	return a.history.CloseSession(ctx, historyID, spotID, departedAt)
}

func (a *StoreAdapter) ListSpots(ctx context.Context) ([]models.SpotDetail, error) {
	return a.spots.List(ctx)
}
