package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-fetches the current conditions for a place into the cache.
type Refresher interface {
	RefreshCurrent(ctx context.Context, place string) error
}

// Scheduler periodically warms the result cache for configured places so the
// first user request for them is served from memory.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	places    []string
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds each place's refresh.
func New(places []string, interval, timeout time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		places:    places,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.places) == 0 {
		log.Println("scheduler: no places configured; nothing to warm")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.warm)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) warm() {
	log.Println("scheduler: running cache warm job")

	var wg sync.WaitGroup
	for _, place := range s.places {
		place := place
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.refresher.RefreshCurrent(ctx, place); err != nil {
				log.Printf("scheduler: warm failed for %q: %v", place, err)
			}
		}()
	}
	wg.Wait()
	log.Println("scheduler: completed cache warm job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
