package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"lanscope/internal/domain"
)

// Sweeper runs one sweep of one target
type Sweeper interface {
	Sweep(ctx context.Context, target string, forceRefresh bool) (*domain.Sweep, error)
}

// SweepFunc receives the outcome of every scheduled sweep. sweep is nil when
// the sweep could not start at all.
type SweepFunc func(target string, sweep *domain.Sweep, err error)

// Scheduler sweeps a fixed set of targets on an interval
type Scheduler struct {
	sweeper  Sweeper
	targets  []string
	interval time.Duration
	onSweep  SweepFunc

	// sweepMu serialises sweeps, scheduled or triggered
	sweepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. onSweep may be nil.
func NewScheduler(sweeper Sweeper, targets []string, interval time.Duration, onSweep SweepFunc) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		targets:  append([]string(nil), targets...),
		interval: interval,
		onSweep:  onSweep,
	}
}

// Start runs an initial sweep then one per interval until ctx is cancelled
// or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	if len(s.targets) == 0 {
		return errors.New("scheduler has no targets")
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runAll(ctx, false)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("Scheduler: stopping")
				return
			case <-ticker.C:
				s.runAll(ctx, false)
			}
		}
	}()

	log.Printf("Scheduler: started for %v (interval=%s)", s.targets, s.interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// TriggerSweep sweeps every target now, waiting for any in-flight sweep
func (s *Scheduler) TriggerSweep(ctx context.Context, forceRefresh bool) {
	s.runAll(ctx, forceRefresh)
}

// Sweep runs one sweep of target under the scheduler's lock, so manual
// sweeps never overlap scheduled ones
func (s *Scheduler) Sweep(ctx context.Context, target string, forceRefresh bool) (*domain.Sweep, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	sweep, err := s.sweeper.Sweep(ctx, target, forceRefresh)
	if s.onSweep != nil {
		s.onSweep(target, sweep, err)
	}
	return sweep, err
}

func (s *Scheduler) runAll(ctx context.Context, forceRefresh bool) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	for _, target := range s.targets {
		if ctx.Err() != nil {
			return
		}
		sweep, err := s.sweeper.Sweep(ctx, target, forceRefresh)
		if err != nil {
			log.Printf("Scheduler: sweep of %s: %v", target, err)
		}
		if s.onSweep != nil {
			s.onSweep(target, sweep, err)
		}
	}
}
