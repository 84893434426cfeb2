// Package app assembles providers, storage and the repository from config.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"opecours/internal/config"
	"opecours/internal/connectivity"
	"opecours/internal/domain/stock"
	"opecours/internal/httpx"
	"opecours/internal/provider"
	"opecours/internal/provider/alphavantage"
	"opecours/internal/provider/cache"
	"opecours/internal/provider/fallback"
	"opecours/internal/provider/finnhub"
	"opecours/internal/provider/ratelimit"
	"opecours/internal/provider/synthetic"
	"opecours/internal/repository"
	"opecours/internal/scheduler"
	"opecours/internal/store/memory"
	"opecours/internal/store/postgres"
	"opecours/internal/store/redisstore"
)

// Finnhub spends one quote and one candle request per operator.
const finnhubCallsPerOperator = 2

// Providers holds each configured upstream; disabled ones are nil.
type Providers struct {
	Primary   provider.Provider
	Secondary provider.Provider
	Mock      *synthetic.Generator
}

// Chain orders the providers for batch fallback. The mock generator closes
// the chain only when withMock is set.
func (p Providers) Chain(withMock bool) *fallback.Chain {
	var mock provider.Provider
	if withMock {
		mock = p.Mock
	}
	return fallback.New(p.Primary, p.Secondary, mock)
}

// BuildProviders creates the upstream clients wrapped in their rate limits.
func BuildProviders(cfg config.Config, clock stock.Clock) (Providers, error) {
	httpClient := httpx.New(cfg.HTTPTimeout())
	out := Providers{Mock: synthetic.New(clock)}

	if cfg.Finnhub.Enabled {
		if cfg.Finnhub.APIKey == "" {
			log.Warn().Msg("finnhub enabled but FINNHUB_API_KEY not set; skipping")
		} else {
			client, err := finnhub.NewClient(cfg.Finnhub.APIKey,
				finnhub.WithBaseURL(cfg.Finnhub.Endpoint),
				finnhub.WithHTTPClient(httpClient),
			)
			if err != nil {
				return out, fmt.Errorf("finnhub client: %w", err)
			}
			var p provider.Provider = finnhub.New(finnhub.Config{
				HistoryWindow:  time.Duration(cfg.Finnhub.HistoryDays) * 24 * time.Hour,
				MaxConcurrency: cfg.Finnhub.MaxConcurrency,
				Clock:          clock,
			}, client)
			if cfg.Finnhub.MaxRequestsPerMinute > 0 {
				p = &ratelimit.TokenBucketProvider{
					P:               p,
					TB:              ratelimit.PerMinute(cfg.Finnhub.MaxRequestsPerMinute),
					CostPerOperator: finnhubCallsPerOperator,
				}
			}
			if cfg.Finnhub.CacheTTLSeconds > 0 {
				p = &cache.Provider{P: p, TTL: time.Duration(cfg.Finnhub.CacheTTLSeconds) * time.Second}
			}
			out.Primary = p
		}
	}

	if cfg.AlphaVantage.Enabled {
		if cfg.AlphaVantage.APIKey == "" {
			log.Warn().Msg("alphavantage enabled but ALPHAVANTAGE_API_KEY not set; skipping")
		} else {
			client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
				alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
				alphavantage.WithHTTPClient(httpClient),
			)
			if err != nil {
				return out, fmt.Errorf("alphavantage client: %w", err)
			}
			var p provider.Provider = alphavantage.New(alphavantage.Config{
				MaxConcurrency: cfg.AlphaVantage.MaxConcurrency,
				Clock:          clock,
			}, client)
			if cfg.AlphaVantage.MaxRequestsPerMinute > 0 {
				p = &ratelimit.TokenBucketProvider{
					P:  p,
					TB: ratelimit.PerMinute(cfg.AlphaVantage.MaxRequestsPerMinute),
				}
			}
			if cfg.AlphaVantage.MinIntervalSec > 0 {
				p = &ratelimit.MinInterval{
					P:        p,
					Interval: time.Duration(cfg.AlphaVantage.MinIntervalSec) * time.Second,
				}
			}
			out.Secondary = p
		}
	}
	return out, nil
}

// OpenStore connects the configured snapshot backend. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg config.Config) (stock.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.RedisAddr, err)
		}
		s := redisstore.New(client, cfg.Cache.RedisKey)
		return s, func() { _ = s.Close() }, nil

	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Cache.DatabaseURL, postgres.Options{
			MaxConns: cfg.Cache.DatabaseMaxConns,
			LogLevel: cfg.Logging.Level,
		}, log.Logger.With().Str("component", "postgres").Logger())
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		return memory.New(), func() {}, nil
	}
}

// App is the assembled service.
type App struct {
	Repository *repository.Repository
	Scheduler  *scheduler.Scheduler
	Providers  Providers
	Store      stock.Store

	closeStore func()
}

// New wires every component described by cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := stock.MarketClock(loc)

	providers, err := BuildProviders(cfg, clock)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var checker connectivity.Checker = connectivity.Always
	if len(cfg.Refresh.ProbeAddrs) > 0 {
		checker = connectivity.NewDialer(cfg.Refresh.ProbeAddrs...)
	}

	var mock provider.Provider
	if cfg.Refresh.MockFallback {
		mock = providers.Mock
	}
	chain := providers.Chain(cfg.Refresh.MockFallback)
	// Finnhub and Alpha Vantage may each use a full HTTP timeout.
	repo := repository.New(repository.Config{
		Mock:           mock,
		RefreshTimeout: 2 * cfg.HTTPTimeout(),
	}, chain, store, checker)

	sched := scheduler.New(scheduler.Config{
		Interval: cfg.RefreshInterval(),
		Location: loc,
		Clock:    clock,
	}, repo)

	log.Info().
		Str("chain", chain.Name()).
		Str("cache", cfg.Cache.Backend).
		Bool("mock_fallback", cfg.Refresh.MockFallback).
		Msg("app assembled")

	return &App{
		Repository: repo,
		Scheduler:  sched,
		Providers:  providers,
		Store:      store,
		closeStore: closeStore,
	}, nil
}

// Close stops the scheduler, ends watch streams and releases the store.
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Repository.Close()
	a.closeStore()
}
