package policy

import (
	"fmt"
	"time"

	"github.com/parking-permit-manager/backend/internal/storage/models"
)

// ExpirationSchedule maps a permit duration to the offset added to the
// issue time. Offsets are configuration, not hard-coded calendar dates,
// so a deployment can align semester boundaries however it wants.
type ExpirationSchedule map[string]time.Duration

// DefaultExpirationSchedule returns the reference duration offsets.
func DefaultExpirationSchedule() ExpirationSchedule {
	return ExpirationSchedule{
		models.DurationYearly:   365 * 24 * time.Hour,
		models.DurationSemester: 120 * 24 * time.Hour,
		models.DurationDaily:    24 * time.Hour,
		models.DurationHourly:   time.Hour,
	}
}

// ExpirationFor computes the expiration time for a permit of the given
// duration issued at the given time.
func (s ExpirationSchedule) ExpirationFor(duration string, issuedAt time.Time) (time.Time, error) {
	offset, ok := s[duration]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown permit duration %q", duration)
	}
	return issuedAt.Add(offset), nil
}
