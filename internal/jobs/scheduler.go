package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"threadmem/internal/kvstore"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is implemented by store backends that need an explicit pass to
// remove lapsed records (SQLite). Redis and Mongo evict server-side.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic maintenance jobs: the expiry sweep and a
// store health ping.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     kvstore.Store
	sweeper   Sweeper
}

// NewScheduler creates the job scheduler. sweeper may be nil for backends
// with native TTL eviction.
func NewScheduler(store kvstore.Store, sweeper Sweeper) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		store:     store,
		sweeper:   sweeper,
	}, nil
}

// Start registers and starts all maintenance jobs.
func (s *Scheduler) Start(sweepInterval time.Duration) error {
	if s.sweeper != nil {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(s.runSweep),
			gocron.WithName("expiry-sweep"),
		)
		if err != nil {
			return fmt.Errorf("failed to register sweep job: %w", err)
		}
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.runHealthPing),
		gocron.WithName("store-health-ping"),
	)
	if err != nil {
		return fmt.Errorf("failed to register health ping job: %w", err)
	}

	s.scheduler.Start()
	log.Println("⏰ [JOBS] Maintenance scheduler started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	log.Println("⏹️  [JOBS] Stopping maintenance scheduler...")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		log.Printf("⚠️  [JOBS] Expiry sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 [JOBS] Expiry sweep removed %d lapsed thread records", removed)
	}
}

func (s *Scheduler) runHealthPing() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		log.Printf("❌ [JOBS] Backing store health ping failed: %v", err)
	}
}
