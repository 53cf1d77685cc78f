package zone

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/parking-permit-manager/backend/internal/websocket"
)

// Scheduler runs the zone reconciler on a fixed interval so a lot's
// zone never drifts from the time-of-day policy between requests.
type Scheduler struct {
	cron        *cron.Cron
	reconciler  *Reconciler
	broadcaster *websocket.EventBroadcaster
	interval    time.Duration
}

// NewScheduler creates a zone reconciliation scheduler.
func NewScheduler(reconciler *Reconciler, hub *websocket.Hub, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		reconciler:  reconciler,
		broadcaster: broadcaster,
		interval:    interval,
	}
}

// Start begins the scheduler and runs one reconciliation immediately so
// the zones are correct before the first claim is served.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Println("Starting zone scheduler...")

	s.Run(ctx, time.Now())

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Run(context.Background(), time.Now())
	}); err != nil {
		return fmt.Errorf("scheduling zone reconciliation: %w", err)
	}

	s.cron.Start()
	log.Printf("Zone scheduler started (every %s)", s.interval)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping zone scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Zone scheduler stopped")
}

// Run executes one reconciliation pass and broadcasts any zone flips.
func (s *Scheduler) Run(ctx context.Context, now time.Time) {
	changes, err := s.reconciler.ReconcileAll(ctx, now)
	if err != nil {
		log.Printf("Zone reconciliation pass failed: %v", err)
		return
	}

	if s.broadcaster != nil {
		for _, c := range changes {
			s.broadcaster.BroadcastZoneChanged(c.LotName, c.ZoneName)
		}
	}
}
