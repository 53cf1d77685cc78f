package enforcement

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweeper's eviction pass and the history prune on
// independent intervals.
type Scheduler struct {
	cron          *cron.Cron
	sweeper       *Sweeper
	sweepInterval time.Duration
	pruneInterval time.Duration
}

// NewScheduler creates an enforcement scheduler.
func NewScheduler(sweeper *Sweeper, sweepInterval, pruneInterval time.Duration) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if pruneInterval <= 0 {
		pruneInterval = time.Hour
	}

	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		pruneInterval: pruneInterval,
	}
}

// Start begins the scheduler and runs one sweep immediately to clear
// anything that lapsed while the server was down.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Println("Starting enforcement scheduler...")

	if _, err := s.sweeper.Sweep(ctx, time.Now()); err != nil {
		log.Printf("Initial enforcement sweep failed: %v", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), func() {
		if _, err := s.sweeper.Sweep(context.Background(), time.Now()); err != nil {
			log.Printf("Enforcement sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling enforcement sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pruneInterval), func() {
		if _, err := s.sweeper.Prune(context.Background(), time.Now()); err != nil {
			log.Printf("History prune failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling history prune: %w", err)
	}

	s.cron.Start()
	log.Printf("Enforcement scheduler started (sweep every %s, prune every %s)", s.sweepInterval, s.pruneInterval)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping enforcement scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Enforcement scheduler stopped")
}
