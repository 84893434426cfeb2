// Package scheduler re-triggers repository refreshes while the market is open.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"opecours/internal/domain/stock"
	"opecours/internal/repository"
)

// DefaultInterval is the auto-refresh period.
const DefaultInterval = 5 * time.Minute

// Refresher is the part of the repository the scheduler drives.
//
//go:generate mockgen -package=scheduler_test -destination=mock_refresher_test.go -source=scheduler.go Refresher
type Refresher interface {
	Refresh(ctx context.Context) repository.State
}

type Config struct {
	Interval time.Duration
	// JobTimeout bounds one refresh; defaults to Interval.
	JobTimeout time.Duration
	Location   *time.Location
	Clock      stock.Clock
}

// Scheduler runs Refresh every Interval, skipping ticks outside market hours.
type Scheduler struct {
	cfg       Config
	refresher Refresher
	cron      *cron.Cron

	mu        sync.Mutex
	isRunning bool
	entry     cron.EntryID
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(cfg Config, refresher Refresher) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = cfg.Interval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = stock.MarketClock(cfg.Location)
	}
	return &Scheduler{
		cfg:       cfg,
		refresher: refresher,
		cron:      cron.New(cron.WithLocation(cfg.Location), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the refresh job. The job stops when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	schedule := fmt.Sprintf("@every %s", s.cfg.Interval)
	jobCtx := s.ctx
	entry, err := s.cron.AddFunc(schedule, func() { s.Tick(jobCtx) })
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule refresh %q: %w", schedule, err)
	}
	s.entry = entry

	s.cron.Start()
	s.isRunning = true
	log.Info().Dur("interval", s.cfg.Interval).Msg("scheduler started")
	return nil
}

// Tick runs one refresh when the market is open and reports whether it ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.cfg.Clock()
	if !stock.IsMarketOpen(now) {
		log.Debug().Time("now", now).Msg("scheduler: market closed, skipping refresh")
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	state := s.refresher.Refresh(jobCtx)
	event := log.Info()
	if state.Status == repository.StatusError {
		event = log.Warn().Str("message", state.Message)
	}
	event.Str("status", string(state.Status)).Dur("elapsed", time.Since(start)).Msg("scheduled refresh")
	return true
}

// Stop cancels the running tick and waits for it to return. The
// scheduler can be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.isRunning = false
	log.Info().Msg("scheduler stopped")
}
