// Package config resolves the daemon configuration once at process start.
// The resulting Config is read-only for the process lifetime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/quantrio/traderd/calendar"
)

// Config holds every daemon setting. An empty cron expression disables the
// corresponding job.
type Config struct {
	// Schedules
	CronSyncBalance     string
	CronExecuteStrategy string
	CronUpdatePrices    string
	Coalesce            bool
	MisfireGrace        time.Duration

	// Trading hours
	MarketOpen       string
	MarketClose      string
	TradableEveryday bool

	// Process lock
	LockDir        string
	LockSingle     bool
	LockStaleAfter time.Duration

	// Venue
	Broker          string
	BrokerAppKey    string
	BrokerAppSecret string
	BrokerPractice  bool

	// Risk limits
	MaxOrderValueKRW decimal.Decimal
	SlippageBPS      int64
	MaxRetry         int

	// Accounts
	AccountCacheTTL time.Duration
	AccountID       string // empty means all active accounts
	AccountsDB      string

	// Reporting
	JournalDB string
	LogLevel  string

	// Strategy
	Assets       []string
	Strategy     string
	StrategyFile string
}

// Default returns the baseline configuration before env overrides.
func Default() *Config {
	return &Config{
		Coalesce:         true,
		MisfireGrace:     60 * time.Second,
		MarketOpen:       "09:00",
		MarketClose:      "15:30",
		LockDir:          "/tmp/traderd",
		LockStaleAfter:   time.Hour,
		Broker:           "demo",
		BrokerPractice:   true,
		MaxOrderValueKRW: decimal.NewFromInt(1_000_000),
		SlippageBPS:      50,
		MaxRetry:         3,
		AccountCacheTTL:  5 * time.Minute,
		AccountsDB:       "./data/accounts.db",
		Strategy:         "noop",
		LogLevel:         "info",
	}
}

// Load reads configuration from the environment. An APP_ENV discriminator
// selects the dotenv file (".env.<APP_ENV>", then ".env"); both loads are
// best-effort so a pure-environment deployment needs no files at all.
func Load() (*Config, error) {
	if env := os.Getenv("APP_ENV"); env != "" {
		_ = godotenv.Load(".env." + env)
	}
	_ = godotenv.Load()

	cfg := Default()
	env := &envReader{}

	cfg.CronSyncBalance = env.str("CRON_SYNC_BALANCE", cfg.CronSyncBalance)
	cfg.CronExecuteStrategy = env.str("CRON_EXECUTE_STRATEGY", cfg.CronExecuteStrategy)
	cfg.CronUpdatePrices = env.str("CRON_UPDATE_PRICES", cfg.CronUpdatePrices)
	cfg.Coalesce = env.boolean("COALESCE", cfg.Coalesce)
	cfg.MisfireGrace = env.seconds("MISFIRE_GRACE", cfg.MisfireGrace)

	cfg.MarketOpen = env.str("MARKET_OPEN", cfg.MarketOpen)
	cfg.MarketClose = env.str("MARKET_CLOSE", cfg.MarketClose)
	cfg.TradableEveryday = env.boolean("TRADABLE_EVERYDAY", cfg.TradableEveryday)

	cfg.LockDir = env.str("LOCK_DIR", cfg.LockDir)
	cfg.LockSingle = env.boolean("LOCK_SINGLE", cfg.LockSingle)
	cfg.LockStaleAfter = env.seconds("LOCK_STALE_AFTER", cfg.LockStaleAfter)

	cfg.Broker = env.str("BROKER", cfg.Broker)
	cfg.BrokerAppKey = env.str("BROKER_APP_KEY", cfg.BrokerAppKey)
	cfg.BrokerAppSecret = env.str("BROKER_APP_SECRET", cfg.BrokerAppSecret)
	cfg.BrokerPractice = env.boolean("BROKER_PRACTICE", cfg.BrokerPractice)

	cfg.MaxOrderValueKRW = env.money("MAX_ORDER_VALUE_KRW", cfg.MaxOrderValueKRW)
	cfg.SlippageBPS = int64(env.integer("SLIPPAGE_BPS", int(cfg.SlippageBPS)))
	cfg.MaxRetry = env.integer("MAX_RETRY", cfg.MaxRetry)

	cfg.AccountCacheTTL = env.seconds("ACCOUNT_CACHE_TTL", cfg.AccountCacheTTL)
	cfg.AccountID = env.str("ACCOUNT_ID", cfg.AccountID)
	cfg.AccountsDB = env.str("ACCOUNTS_DB", cfg.AccountsDB)

	cfg.JournalDB = env.str("JOURNAL_DB", cfg.JournalDB)
	cfg.LogLevel = env.str("LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("ASSETS"); v != "" {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Assets = append(cfg.Assets, a)
			}
		}
	}
	cfg.Strategy = env.str("STRATEGY", cfg.Strategy)
	cfg.StrategyFile = env.str("STRATEGY_FILE", cfg.StrategyFile)

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that must hold before any job runs.
func (c *Config) Validate() error {
	if _, err := calendar.ParseHHMM(c.MarketOpen); err != nil {
		return fmt.Errorf("MARKET_OPEN: %w", err)
	}
	if _, err := calendar.ParseHHMM(c.MarketClose); err != nil {
		return fmt.Errorf("MARKET_CLOSE: %w", err)
	}
	if c.LockDir == "" {
		return fmt.Errorf("LOCK_DIR is required")
	}
	if c.LockStaleAfter <= 0 {
		return fmt.Errorf("LOCK_STALE_AFTER must be positive")
	}
	if c.MisfireGrace < 0 {
		return fmt.Errorf("MISFIRE_GRACE must not be negative")
	}
	if c.Broker == "" {
		return fmt.Errorf("BROKER is required")
	}
	if c.MaxOrderValueKRW.Sign() <= 0 {
		return fmt.Errorf("MAX_ORDER_VALUE_KRW must be positive")
	}
	if c.SlippageBPS < 0 {
		return fmt.Errorf("SLIPPAGE_BPS must not be negative")
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("MAX_RETRY must not be negative")
	}
	if c.AccountCacheTTL <= 0 {
		return fmt.Errorf("ACCOUNT_CACHE_TTL must be positive")
	}
	if c.AccountsDB == "" {
		return fmt.Errorf("ACCOUNTS_DB is required")
	}
	if c.Strategy == "" {
		return fmt.Errorf("STRATEGY is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// envReader reads typed values from the environment, keeping the first parse
// failure. An unset or empty variable yields the default; a present but
// malformed one is a startup error, never a silent fallback.
type envReader struct {
	err error
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (e *envReader) str(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return intVal
}

func (e *envReader) boolean(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return boolVal
}

func (e *envReader) seconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}

func (e *envReader) money(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		e.fail(key, err)
		return defaultValue
	}
	return d
}
