// Package repository orchestrates fetching, caching and publishing quote
// states.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"opecours/internal/broker"
	"opecours/internal/connectivity"
	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

// DefaultRefreshTimeout bounds one shared refresh when Config leaves it unset.
const DefaultRefreshTimeout = time.Minute

type Config struct {
	// Operators defaults to stock.ActiveOperators().
	Operators []stock.Operator
	// Mock, when set, answers refreshes that could not fetch real data.
	Mock provider.Provider
	// WatchBuffer is the per-watcher channel size.
	WatchBuffer int
	// RefreshTimeout bounds the fetch of a coalesced refresh. It runs
	// detached from the callers, so it is the only deadline that applies.
	RefreshTimeout time.Duration
	Logger      *zerolog.Logger
}

// Repository is the single entry point for quote state.
type Repository struct {
	cfg     Config
	fetcher provider.Provider
	store   stock.Store
	checker connectivity.Checker
	broker  *broker.Broker[State]
	group   singleflight.Group
	logger  zerolog.Logger
}

// New builds a repository fetching through fetcher (usually a fallback
// chain) and persisting into store. A nil checker means always online.
func New(cfg Config, fetcher provider.Provider, store stock.Store, checker connectivity.Checker) *Repository {
	if len(cfg.Operators) == 0 {
		cfg.Operators = stock.ActiveOperators()
	}
	if checker == nil {
		checker = connectivity.Always
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Repository{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		checker: checker,
		broker:  broker.New[State](cfg.WatchBuffer),
		logger:  logger.With().Str("component", "repository").Logger(),
	}
}

// Stocks runs the read path. The channel receives Loading, then the cached
// snapshot when there is one, then the fresh batch or an Error, and is
// closed afterwards. Cancelling ctx stops emission and closes the channel.
func (r *Repository) Stocks(ctx context.Context) <-chan State {
	out := make(chan State)
	go func() {
		defer close(out)
		r.read(ctx, func(s State) bool { return send(ctx, out, s) })
	}()
	return out
}

// Watch runs the read path and then forwards every refresh result until ctx
// is cancelled. Refresh results that arrive while the read path is still
// running are delivered after it.
func (r *Repository) Watch(ctx context.Context) <-chan State {
	sub := r.broker.Subscribe()
	out := make(chan State)
	go func() {
		defer close(out)
		defer r.broker.Unsubscribe(sub)

		if !r.read(ctx, func(s State) bool { return send(ctx, out, s) }) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-sub.C:
				if !ok || !send(ctx, out, s) {
					return
				}
			}
		}
	}()
	return out
}

// Refresh fetches a new batch, persists it and publishes it to watchers.
// When a mock provider is configured it never returns an Error state.
// Concurrent calls share a single fetch that ignores their cancellation;
// a caller whose ctx ends first gets mock quotes (or the ctx error) without
// affecting the shared result.
func (r *Repository) Refresh(ctx context.Context) State {
	base := context.WithoutCancel(ctx)
	ch := r.group.DoChan("refresh", func() (any, error) {
		s := r.refresh(base)
		r.broker.Publish(s)
		return s, nil
	})
	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		if mock, ok := r.mock(base, r.logger); ok {
			return Success(mock)
		}
		return Failure(Classify(ctx.Err()))
	}
}

// Close ends every Watch stream.
func (r *Repository) Close() {
	r.broker.Close()
}

// read emits the read-path states and reports whether the consumer is still
// listening.
func (r *Repository) read(ctx context.Context, emit func(State) bool) bool {
	logger := r.logger.With().Str("run_id", uuid.NewString()).Str("path", "read").Logger()

	if !emit(Loading()) {
		return false
	}

	if cached := r.cached(ctx, logger); len(cached) > 0 {
		if !emit(Success(cached)) {
			return false
		}
	}

	if !r.checker.Available(ctx) {
		if len(r.cached(ctx, logger)) == 0 {
			logger.Warn().Msg("offline with an empty cache")
			return emit(Failure(MsgNoConnectivityNoCache))
		}
		logger.Info().Msg("offline, serving cached snapshot")
		return true
	}

	stocks, err := r.fetcher.Fetch(ctx, r.cfg.Operators)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Error().Err(err).Str("provider", r.fetcher.Name()).Msg("fetch failed")
		return emit(Failure(Classify(err)))
	}

	r.persist(ctx, logger, stocks)
	logger.Info().Int("count", len(stocks)).Msg("fresh quotes")
	return emit(Success(stock.CloneAll(stocks)))
}

// refresh runs one shared cycle on a context no caller can cancel.
func (r *Repository) refresh(base context.Context) State {
	logger := r.logger.With().Str("run_id", uuid.NewString()).Str("path", "refresh").Logger()

	ctx, cancel := context.WithTimeout(base, r.cfg.RefreshTimeout)
	defer cancel()

	stocks, err := r.fetch(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("refresh failed")
		mock, ok := r.mock(base, logger)
		if !ok {
			return Failure(Classify(err))
		}
		stocks = mock
	}

	persistCtx, cancelPersist := context.WithTimeout(base, r.cfg.RefreshTimeout)
	defer cancelPersist()
	r.persist(persistCtx, logger, stocks)
	logger.Info().Int("count", len(stocks)).Msg("refreshed")
	return Success(stock.CloneAll(stocks))
}

// mock returns generator output when mock fallback is configured.
func (r *Repository) mock(ctx context.Context, logger zerolog.Logger) ([]stock.Stock, bool) {
	if r.cfg.Mock == nil {
		return nil, false
	}
	stocks, err := r.cfg.Mock.Fetch(ctx, r.cfg.Operators)
	if err != nil {
		logger.Error().Err(err).Msg("mock fallback failed")
		return nil, false
	}
	logger.Warn().Str("provider", r.cfg.Mock.Name()).Msg("serving mock quotes")
	return stock.CloneAll(stocks), true
}

func (r *Repository) fetch(ctx context.Context) ([]stock.Stock, error) {
	if !r.checker.Available(ctx) {
		return nil, stock.ErrNoConnectivity
	}
	stocks, err := r.fetcher.Fetch(ctx, r.cfg.Operators)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.fetcher.Name(), err)
	}
	return stocks, nil
}

// cached reads the store. Errors are logged and read as an empty cache.
func (r *Repository) cached(ctx context.Context, logger zerolog.Logger) []stock.Stock {
	stocks, err := r.store.All(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("cache read failed")
		}
		return nil
	}
	return stocks
}

// persist replaces the snapshot. A failed write is logged; the fresh batch
// is still returned to the caller.
func (r *Repository) persist(ctx context.Context, logger zerolog.Logger, stocks []stock.Stock) {
	if err := r.store.ReplaceAll(ctx, stocks); err != nil {
		logger.Error().Err(err).Msg("cache write failed")
	}
}

func send(ctx context.Context, ch chan<- State, s State) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- s:
		return true
	}
}
