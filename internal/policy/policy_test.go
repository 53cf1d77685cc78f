package policy

import (
	"testing"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

func TestZoneAccessDefaults(t *testing.T) {
	p := DefaultZoneAccess()

	tests := []struct {
		zone     string
		category string
		want     bool
	}{
		{"Green", models.CategoryFaculty, true},
		{"Green", models.CategoryStudent, true},
		{"Green", models.CategoryGuest, true},
		{"Gold", models.CategoryFaculty, true},
		{"Gold", models.CategoryStudent, false},
		{"Gold", models.CategoryGuest, false},
		{"H", models.CategoryHandicap, true},
		{"H", models.CategoryFaculty, false},
		{"Unknown", models.CategoryFaculty, false},
	}

	for _, tt := range tests {
		if got := p.Admits(tt.zone, tt.category); got != tt.want {
			t.Errorf("Admits(%q, %q) = %v, want %v", tt.zone, tt.category, got, tt.want)
		}
	}
}

func TestAllowedZones(t *testing.T) {
	p := DefaultZoneAccess()

	zones := p.AllowedZones(models.CategoryStudent)
	if len(zones) != 1 || zones[0] != "Green" {
		t.Fatalf("expected student allowed only in Green, got %v", zones)
	}

	if got := len(p.AllowedZones(models.CategoryFaculty)); got != 2 {
		t.Fatalf("expected faculty allowed in 2 zones, got %d", got)
	}
}

func TestNightWindowWrapsMidnight(t *testing.T) {
	w := DefaultNightWindow()

	for _, hour := range []int{19, 22, 23, 0, 3, 5} {
		if !w.Contains(hour) {
			t.Errorf("expected hour %d inside 19:00-06:00 window", hour)
		}
	}
	for _, hour := range []int{6, 12, 18} {
		if w.Contains(hour) {
			t.Errorf("expected hour %d outside 19:00-06:00 window", hour)
		}
	}
}

func TestNightWindowNonWrapping(t *testing.T) {
	w := NightWindow{StartHour: 0, EndHour: 6}

	if !w.Contains(3) {
		t.Error("expected hour 3 inside 00:00-06:00 window")
	}
	if w.Contains(6) || w.Contains(19) {
		t.Error("expected hours 6 and 19 outside 00:00-06:00 window")
	}
}

func TestExpirationFor(t *testing.T) {
	s := DefaultExpirationSchedule()
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		duration string
		want     time.Time
	}{
		{models.DurationHourly, issued.Add(time.Hour)},
		{models.DurationDaily, issued.Add(24 * time.Hour)},
		{models.DurationSemester, issued.Add(120 * 24 * time.Hour)},
		{models.DurationYearly, issued.Add(365 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		got, err := s.ExpirationFor(tt.duration, issued)
		if err != nil {
			t.Fatalf("ExpirationFor(%q): %v", tt.duration, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ExpirationFor(%q) = %v, want %v", tt.duration, got, tt.want)
		}
	}

	if _, err := s.ExpirationFor("weekly", issued); err == nil {
		t.Error("expected error for unknown duration")
	}
}
