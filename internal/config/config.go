package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Finnhub struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	MaxConcurrency       int    `json:"max_concurrency"`
	HistoryDays          int    `json:"history_days"`
	CacheTTLSeconds      int    `json:"cache_ttl_sec"`
}

type AlphaVantage struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	MaxConcurrency       int    `json:"max_concurrency"`
	// MinIntervalSec spaces whole batches apart; 0 disables it.
	MinIntervalSec int `json:"min_interval_sec"`
}

// Cache selects where the last known snapshot is persisted.
type Cache struct {
	Backend          string `json:"backend"` // memory, redis, postgres
	RedisAddr        string `json:"redis_addr"`
	RedisPassword    string `json:"redis_password"`
	RedisDB          int    `json:"redis_db"`
	RedisKey         string `json:"redis_key"`
	DatabaseURL      string `json:"database_url"`
	DatabaseMaxConns int32  `json:"database_max_conns"`
}

type Refresh struct {
	IntervalSec    int    `json:"interval_sec"`
	Timezone       string `json:"timezone"`
	MockFallback   bool   `json:"mock_fallback"`
	HTTPTimeoutSec int    `json:"http_timeout_sec"`
	// ProbeAddrs are dialed to decide whether the network is reachable.
	ProbeAddrs []string `json:"probe_addrs"`
}

type Logging struct {
	Level          string `json:"level"`
	Format         string `json:"format"` // json, pretty
	FilePath       string `json:"file_path"`
	RotationSizeMB int    `json:"rotation_size_mb"`
	RetentionDays  int    `json:"retention_days"`
}

type Config struct {
	Server       Server       `json:"server"`
	Finnhub      Finnhub      `json:"finnhub"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Cache        Cache        `json:"cache"`
	Refresh      Refresh      `json:"refresh"`
	Logging      Logging      `json:"logging"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		Finnhub: Finnhub{
			Enabled:              true,
			Endpoint:             "https://finnhub.io/api/v1",
			MaxRequestsPerMinute: 60,
			MaxConcurrency:       4,
			HistoryDays:          7,
			CacheTTLSeconds:      30,
		},
		AlphaVantage: AlphaVantage{
			Enabled:              true,
			Endpoint:             "https://www.alphavantage.co",
			MaxRequestsPerMinute: 5,
			MaxConcurrency:       1,
		},
		Cache: Cache{
			Backend:          "memory",
			RedisAddr:        "localhost:6379",
			RedisKey:         "opecours:stocks",
			DatabaseMaxConns: 4,
		},
		Refresh: Refresh{
			IntervalSec:    300,
			Timezone:       "Europe/Paris",
			MockFallback:   true,
			HTTPTimeoutSec: 30,
			ProbeAddrs:     []string{"finnhub.io:443", "www.alphavantage.co:443"},
		},
		Logging: Logging{
			Level:          "info",
			Format:         "json",
			RotationSizeMB: 50,
			RetentionDays:  7,
		},
	}
}

// Load builds the configuration from defaults, then the JSON file at path
// (or CONFIG_FILE, or ./config.json when present), then the environment.
// A .env file in the working directory is loaded into the environment first
// without overriding variables that are already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("config: redis backend requires REDIS_ADDR")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			return errors.New("config: postgres backend requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Refresh.IntervalSec <= 0 {
		return fmt.Errorf("config: refresh interval must be positive, got %d", c.Refresh.IntervalSec)
	}
	switch c.Logging.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	return nil
}

// Location is the exchange timezone used for market hours.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Refresh.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Refresh.Timezone, err)
	}
	return loc, nil
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Refresh.HTTPTimeoutSec) * time.Second
}

func applyEnv(cfg *Config) {
	envString("PORT", &cfg.Server.Port)
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)

	envBool("FINNHUB_ENABLED", &cfg.Finnhub.Enabled)
	envString("FINNHUB_API_KEY", &cfg.Finnhub.APIKey)
	envString("FINNHUB_ENDPOINT", &cfg.Finnhub.Endpoint)
	envInt("FINNHUB_MAX_RPM", &cfg.Finnhub.MaxRequestsPerMinute, 0)
	envInt("FINNHUB_MAX_CONCURRENCY", &cfg.Finnhub.MaxConcurrency, 1)
	envInt("FINNHUB_HISTORY_DAYS", &cfg.Finnhub.HistoryDays, 1)
	envInt("FINNHUB_CACHE_TTL_SEC", &cfg.Finnhub.CacheTTLSeconds, 0)

	envBool("ALPHAVANTAGE_ENABLED", &cfg.AlphaVantage.Enabled)
	envString("ALPHAVANTAGE_API_KEY", &cfg.AlphaVantage.APIKey)
	envString("ALPHAVANTAGE_ENDPOINT", &cfg.AlphaVantage.Endpoint)
	envInt("ALPHAVANTAGE_MAX_RPM", &cfg.AlphaVantage.MaxRequestsPerMinute, 0)
	envInt("ALPHAVANTAGE_MAX_CONCURRENCY", &cfg.AlphaVantage.MaxConcurrency, 1)
	envInt("ALPHAVANTAGE_MIN_INTERVAL_SEC", &cfg.AlphaVantage.MinIntervalSec, 0)

	envString("CACHE_BACKEND", &cfg.Cache.Backend)
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	envString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	envInt("REDIS_DB", &cfg.Cache.RedisDB, 0)
	envString("REDIS_KEY", &cfg.Cache.RedisKey)
	envString("DATABASE_URL", &cfg.Cache.DatabaseURL)
	var maxConns int
	if envInt("DATABASE_MAX_CONNS", &maxConns, 1) {
		cfg.Cache.DatabaseMaxConns = int32(maxConns)
	}

	envInt("REFRESH_INTERVAL_SEC", &cfg.Refresh.IntervalSec, 1)
	envString("MARKET_TIMEZONE", &cfg.Refresh.Timezone)
	envBool("MOCK_FALLBACK", &cfg.Refresh.MockFallback)
	envInt("HTTP_TIMEOUT_SEC", &cfg.Refresh.HTTPTimeoutSec, 1)
	if v := os.Getenv("CONNECTIVITY_PROBE_ADDRS"); v != "" {
		cfg.Refresh.ProbeAddrs = splitCSV(v)
	}

	envString("LOG_LEVEL", &cfg.Logging.Level)
	envString("LOG_FORMAT", &cfg.Logging.Format)
	envString("LOG_FILE_PATH", &cfg.Logging.FilePath)
	envInt("LOG_ROTATION_SIZE_MB", &cfg.Logging.RotationSizeMB, 1)
	envInt("LOG_RETENTION_DAYS", &cfg.Logging.RetentionDays, 1)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envInt sets dst when key holds an integer >= floor and reports whether it did.
func envInt(key string, dst *int, floor int) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || x < floor {
		return false
	}
	*dst = x
	return true
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
