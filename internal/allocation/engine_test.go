package allocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parking-permit-manager/backend/internal/policy"
	"github.com/parking-permit-manager/backend/internal/storage"
	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// -------------------------
// In-memory fake store
// -------------------------

type fakeStore struct {
	mu sync.Mutex

	permits     map[string]*models.ActivePermit // account ID -> permit
	spots       map[string]*models.SpotDetail   // spot ID -> spot
	assignments map[string]bool                 // lotID+"/"+zoneID -> active
	openByVeh   map[string]*models.ParkingHistory

	// openSessionErr forces OpenSession to fail, for conflict tests.
	openSessionErr error
	openCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		permits:     map[string]*models.ActivePermit{},
		spots:       map[string]*models.SpotDetail{},
		assignments: map[string]bool{},
		openByVeh:   map[string]*models.ParkingHistory{},
	}
}

func (s *fakeStore) addSpot(id, number, lotID, lotName, zoneID, zoneName string, occupied, active bool) {
	s.spots[id] = &models.SpotDetail{
		Spot: models.Spot{
			ID: id, LotID: lotID, ZoneID: zoneID,
			SpotNumber: number, Occupied: occupied, Active: active,
		},
		LotName:  lotName,
		ZoneName: zoneName,
	}
}

func (s *fakeStore) ActivePermitByAccount(ctx context.Context, accountID string, now time.Time) (*models.ActivePermit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permits[accountID]
	if !ok || !now.Before(p.ExpiresAt) {
		return nil, nil
	}
	return p, nil
}

func (s *fakeStore) OpenSessionByVehicle(ctx context.Context, vehicleID string) (*models.OpenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openViewLocked(vehicleID), nil
}

func (s *fakeStore) openViewLocked(vehicleID string) *models.OpenSession {
	h, ok := s.openByVeh[vehicleID]
	if !ok {
		return nil
	}
	spot := s.spots[h.SpotID]
	return &models.OpenSession{
		HistoryID:  h.ID,
		VehicleID:  vehicleID,
		SpotID:     h.SpotID,
		SpotNumber: spot.SpotNumber,
		LotID:      spot.LotID,
		LotName:    spot.LotName,
		ZoneName:   spot.ZoneName,
		ArrivedAt:  h.ArrivedAt,
	}
}

func (s *fakeStore) SpotByNumber(ctx context.Context, spotNumber string) (*models.SpotDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spot := range s.spots {
		if spot.SpotNumber == spotNumber {
			copied := *spot
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ZoneAssignment(ctx context.Context, lotID, zoneID string) (*models.ZoneAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.assignments[lotID+"/"+zoneID]
	if !ok {
		return nil, nil
	}
	return &models.ZoneAssignment{LotID: lotID, ZoneID: zoneID, Active: active}, nil
}

func (s *fakeStore) OpenSession(ctx context.Context, vehicleID, spotID string, arrivedAt time.Time) (*models.ParkingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openCalls++
	if s.openSessionErr != nil {
		return nil, s.openSessionErr
	}

	spot, ok := s.spots[spotID]
	if !ok || spot.Occupied || !spot.Active {
		return nil, storage.ErrConflict
	}
	if _, parked := s.openByVeh[vehicleID]; parked {
		return nil, storage.ErrConflict
	}

	spot.Occupied = true
	h := &models.ParkingHistory{
		ID:        "hist-" + vehicleID,
		VehicleID: vehicleID,
		SpotID:    spotID,
		ArrivedAt: arrivedAt,
	}
	s.openByVeh[vehicleID] = h
	return h, nil
}

func (s *fakeStore) CloseSession(ctx context.Context, historyID, spotID string, departedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for vehicleID, h := range s.openByVeh {
		if h.ID == historyID {
			delete(s.openByVeh, vehicleID)
			s.spots[spotID].Occupied = false
			return nil
		}
	}
	return storage.ErrConflict
}

func (s *fakeStore) ListSpots(ctx context.Context) ([]models.SpotDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SpotDetail
	for _, spot := range s.spots {
		out = append(out, *spot)
	}
	return out, nil
}

// occupancyMatchesLedger checks the central invariant: a spot is
// occupied exactly when it has an open session.
func (s *fakeStore) occupancyMatchesLedger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	openSpots := map[string]bool{}
	for _, h := range s.openByVeh {
		if openSpots[h.SpotID] {
			return false // two open sessions on one spot
		}
		openSpots[h.SpotID] = true
	}
	for id, spot := range s.spots {
		if spot.Occupied != openSpots[id] {
			return false
		}
	}
	return true
}

// -------------------------
// Fixtures
// -------------------------

var testNow = time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC)

func newTestEngine(store Store) *Engine {
	e := NewEngine(store, policy.DefaultZoneAccess(), nil)
	e.now = func() time.Time { return testNow }
	return e
}

func facultyPermit(accountID, vehicleID, plate string) *models.ActivePermit {
	return &models.ActivePermit{
		PermitID:  "permit-" + accountID,
		AccountID: accountID,
		VehicleID: vehicleID,
		Plate:     plate,
		Category:  models.CategoryFaculty,
		ExpiresAt: testNow.Add(30 * 24 * time.Hour),
	}
}

func setupStore() *fakeStore {
	s := newFakeStore()
	s.permits["acct-1"] = facultyPermit("acct-1", "veh-1", "ABC-123")
	s.addSpot("spot-gold", "G-01", "lot-3", "North Lot", "zone-gold", "Gold", false, true)
	s.addSpot("spot-h", "H-01", "lot-3", "North Lot", "zone-h", "H", false, true)
	s.assignments["lot-3/zone-gold"] = true
	s.assignments["lot-3/zone-h"] = true
	return s
}

// -------------------------
// Claim
// -------------------------

func TestClaimGranted(t *testing.T) {
	s := setupStore()
	e := newTestEngine(s)

	res, err := e.Claim(context.Background(), "acct-1", "G-01")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !res.Granted {
		t.Fatalf("expected grant, got denial %q", res.Reason)
	}
	if res.SpotNumber != "G-01" || res.LotName != "North Lot" || res.ZoneName != "Gold" {
		t.Errorf("unexpected grant details: %+v", res)
	}
	if !res.ArrivedAt.Equal(testNow) {
		t.Errorf("arrival time = %v, want %v", res.ArrivedAt, testNow)
	}
	if !s.occupancyMatchesLedger() {
		t.Error("occupancy flag out of sync with ledger after claim")
	}
}

func TestClaimDenials(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *fakeStore)
		account string
		spot    string
		want    Reason
	}{
		{
			name:    "no active permit",
			prepare: func(s *fakeStore) {},
			account: "acct-unknown",
			spot:    "G-01",
			want:    ReasonNoActivePermit,
		},
		{
			name: "expired permit",
			prepare: func(s *fakeStore) {
				s.permits["acct-1"].ExpiresAt = testNow.Add(-time.Minute)
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonNoActivePermit,
		},
		{
			name: "already parked elsewhere",
			prepare: func(s *fakeStore) {
				if _, err := s.OpenSession(context.Background(), "veh-1", "spot-h", testNow); err != nil {
					panic(err)
				}
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonAlreadyParked,
		},
		{
			name:    "spot not found",
			prepare: func(s *fakeStore) {},
			account: "acct-1",
			spot:    "Z-99",
			want:    ReasonSpotNotFound,
		},
		{
			name: "spot occupied",
			prepare: func(s *fakeStore) {
				s.spots["spot-gold"].Occupied = true
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonSpotOccupied,
		},
		{
			name: "spot inactive",
			prepare: func(s *fakeStore) {
				s.spots["spot-gold"].Active = false
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonSpotInactive,
		},
		{
			name: "zone assignment inactive",
			prepare: func(s *fakeStore) {
				s.assignments["lot-3/zone-gold"] = false
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonZoneSuspended,
		},
		{
			name: "zone assignment missing",
			prepare: func(s *fakeStore) {
				delete(s.assignments, "lot-3/zone-gold")
			},
			account: "acct-1",
			spot:    "G-01",
			want:    ReasonZoneSuspended,
		},
		{
			name:    "category not allowed",
			prepare: func(s *fakeStore) {},
			account: "acct-1",
			spot:    "H-01", // faculty permit against the handicap zone
			want:    ReasonCategoryNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStore()
			tt.prepare(s)
			e := newTestEngine(s)

			res, err := e.Claim(context.Background(), tt.account, tt.spot)
			if err != nil {
				t.Fatalf("Claim: %v", err)
			}
			if res.Granted {
				t.Fatal("expected denial, got grant")
			}
			if res.Reason != tt.want {
				t.Errorf("reason = %q, want %q", res.Reason, tt.want)
			}
		})
	}
}

func TestClaimOccupiedSpotNeverGrantsTwice(t *testing.T) {
	s := setupStore()
	s.permits["acct-2"] = facultyPermit("acct-2", "veh-2", "XYZ-789")
	e := newTestEngine(s)

	first, err := e.Claim(context.Background(), "acct-1", "G-01")
	if err != nil || !first.Granted {
		t.Fatalf("first claim: granted=%v err=%v", first.Granted, err)
	}

	second, err := e.Claim(context.Background(), "acct-2", "G-01")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second.Granted {
		t.Fatal("claiming an occupied spot succeeded twice")
	}
	if second.Reason != ReasonSpotOccupied {
		t.Errorf("reason = %q, want %q", second.Reason, ReasonSpotOccupied)
	}
}

func TestClaimRetriesExhaustedSurfaceAsOccupied(t *testing.T) {
	s := setupStore()
	s.openSessionErr = storage.ErrConflict
	e := newTestEngine(s)

	res, err := e.Claim(context.Background(), "acct-1", "G-01")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Granted {
		t.Fatal("expected denial on persistent conflict")
	}
	if res.Reason != ReasonSpotOccupied {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonSpotOccupied)
	}
	if s.openCalls != claimRetries+1 {
		t.Errorf("OpenSession called %d times, want %d", s.openCalls, claimRetries+1)
	}
}

func TestConcurrentClaimsOnOneSpot(t *testing.T) {
	s := setupStore()
	s.permits["acct-2"] = facultyPermit("acct-2", "veh-2", "XYZ-789")
	e := newTestEngine(s)

	var wg sync.WaitGroup
	results := make([]ClaimResult, 2)
	for i, account := range []string{"acct-1", "acct-2"} {
		wg.Add(1)
		go func(i int, account string) {
			defer wg.Done()
			res, err := e.Claim(context.Background(), account, "G-01")
			if err != nil {
				t.Errorf("Claim(%s): %v", account, err)
				return
			}
			results[i] = res
		}(i, account)
	}
	wg.Wait()

	granted := 0
	for _, res := range results {
		if res.Granted {
			granted++
		}
	}
	if granted != 1 {
		t.Fatalf("expected exactly one grant, got %d", granted)
	}
	if !s.occupancyMatchesLedger() {
		t.Error("occupancy flag out of sync with ledger after concurrent claims")
	}
}

// -------------------------
// Unclaim
// -------------------------

func TestUnclaimReleasesAndSpotIsReclaimable(t *testing.T) {
	s := setupStore()
	s.permits["acct-2"] = facultyPermit("acct-2", "veh-2", "XYZ-789")
	e := newTestEngine(s)

	if res, err := e.Claim(context.Background(), "acct-1", "G-01"); err != nil || !res.Granted {
		t.Fatalf("claim: granted=%v err=%v", res.Granted, err)
	}

	rel, err := e.Unclaim(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Unclaim: %v", err)
	}
	if !rel.Released {
		t.Fatalf("expected release, got %q", rel.Reason)
	}
	if rel.SpotNumber != "G-01" || rel.LotName != "North Lot" {
		t.Errorf("unexpected release details: %+v", rel)
	}
	if !s.occupancyMatchesLedger() {
		t.Error("occupancy flag out of sync with ledger after release")
	}

	// No lingering lock: a different eligible vehicle claims it at once.
	res, err := e.Claim(context.Background(), "acct-2", "G-01")
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !res.Granted {
		t.Fatalf("expected reclaim to succeed, got %q", res.Reason)
	}
}

func TestUnclaimWhenNotParked(t *testing.T) {
	s := setupStore()
	e := newTestEngine(s)

	rel, err := e.Unclaim(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Unclaim: %v", err)
	}
	if rel.Released {
		t.Fatal("expected denial for vehicle that is not parked")
	}
	if rel.Reason != ReasonNotParked {
		t.Errorf("reason = %q, want %q", rel.Reason, ReasonNotParked)
	}
}

// -------------------------
// Status and snapshot
// -------------------------

func TestStatus(t *testing.T) {
	s := setupStore()
	e := newTestEngine(s)

	view, err := e.Status(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !view.HasPermit || view.IsParked {
		t.Fatalf("expected permit without parking, got %+v", view)
	}

	if res, err := e.Claim(context.Background(), "acct-1", "G-01"); err != nil || !res.Granted {
		t.Fatalf("claim: granted=%v err=%v", res.Granted, err)
	}

	view, err = e.Status(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !view.IsParked || view.SpotNumber != "G-01" || view.ZoneName != "Gold" {
		t.Errorf("unexpected parked status: %+v", view)
	}
	if view.ArrivedAt == nil || !view.ArrivedAt.Equal(testNow) {
		t.Errorf("arrival = %v, want %v", view.ArrivedAt, testNow)
	}

	// Unknown account: empty view, no error.
	view, err = e.Status(context.Background(), "acct-nobody")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.HasPermit || view.IsParked {
		t.Errorf("expected empty view, got %+v", view)
	}
}

func TestListSpots(t *testing.T) {
	s := setupStore()
	e := newTestEngine(s)

	if res, err := e.Claim(context.Background(), "acct-1", "G-01"); err != nil || !res.Granted {
		t.Fatalf("claim: granted=%v err=%v", res.Granted, err)
	}

	views, err := e.ListSpots(context.Background())
	if err != nil {
		t.Fatalf("ListSpots: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 spots, got %d", len(views))
	}
	for _, v := range views {
		wantOccupied := v.SpotNumber == "G-01"
		if v.Occupied != wantOccupied {
			t.Errorf("spot %s occupied = %v, want %v", v.SpotNumber, v.Occupied, wantOccupied)
		}
	}
}
