package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/accounts"
	"github.com/quantrio/traderd/broker"
	_ "github.com/quantrio/traderd/broker/demo"
	_ "github.com/quantrio/traderd/broker/kis"
	"github.com/quantrio/traderd/calendar"
	"github.com/quantrio/traderd/config"
	"github.com/quantrio/traderd/jobs"
	"github.com/quantrio/traderd/journal"
	"github.com/quantrio/traderd/lock"
	"github.com/quantrio/traderd/market"
	"github.com/quantrio/traderd/risk"
	"github.com/quantrio/traderd/scheduler"
	"github.com/quantrio/traderd/strategy"
)

// app wires the daemon together. Any error here is fatal: the process must
// halt before a single job runs.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  *accounts.SQLiteStore
	cache  *accounts.Cache
	venue  broker.Broker
	quotes *market.QuoteStore
	jnl    journal.Journal
	locks  *lock.Manager
	sched  *scheduler.Scheduler

	syncBalance     *jobs.SyncBalance
	executeStrategy *jobs.ExecuteStrategy
	updatePrices    *jobs.UpdatePrices
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel) // validated by config.Load
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)

	store, err := accounts.NewSQLite(cfg.AccountsDB)
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}

	venue, err := broker.New(cfg.Broker, broker.Settings{
		AppKey:    cfg.BrokerAppKey,
		AppSecret: cfg.BrokerAppSecret,
		Practice:  cfg.BrokerPractice,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	strat, err := strategy.New(cfg.Strategy, strategy.Params{
		Assets:     cfg.Assets,
		ConfigFile: cfg.StrategyFile,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	gate, err := calendar.New(cfg.MarketOpen, cfg.MarketClose, cfg.TradableEveryday)
	if err != nil {
		store.Close()
		return nil, err
	}

	locks, err := lock.NewManager(cfg.LockDir, cfg.LockSingle, cfg.LockStaleAfter, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var jnl journal.Journal = journal.Nop{}
	if cfg.JournalDB != "" {
		if jnl, err = journal.NewSQLite(cfg.JournalDB); err != nil {
			store.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	cache := accounts.NewCache(store, cfg.AccountCacheTTL)
	quotes := market.NewQuoteStore()
	limits := risk.Limits{
		MaxOrderValueKRW: cfg.MaxOrderValueKRW,
		SlippageBPS:      cfg.SlippageBPS,
		MaxRetry:         cfg.MaxRetry,
	}
	submitter := risk.NewSubmitter(limits, venue, log)

	a := &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		cache:  cache,
		venue:  venue,
		quotes: quotes,
		jnl:    jnl,
		locks:  locks,
		sched:  scheduler.New(locks, cfg.Coalesce, cfg.MisfireGrace, log),
	}

	a.syncBalance = &jobs.SyncBalance{
		Cache:     cache,
		Store:     store,
		Venue:     venue,
		Journal:   jnl,
		MaxRetry:  cfg.MaxRetry,
		AccountID: cfg.AccountID,
		Log:       log,
	}
	a.executeStrategy = &jobs.ExecuteStrategy{
		Cache:     cache,
		Store:     store,
		Venue:     venue,
		Gate:      gate,
		Strategy:  strat,
		Submitter: submitter,
		Journal:   jnl,
		MaxRetry:  cfg.MaxRetry,
		AccountID: cfg.AccountID,
		Log:       log,
	}
	a.updatePrices = &jobs.UpdatePrices{
		Venue:    venue,
		Quotes:   quotes,
		Journal:  jnl,
		Assets:   cfg.Assets,
		MaxRetry: cfg.MaxRetry,
		Log:      log,
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.jnl.Close(); err != nil {
		a.log.Error().Err(err).Msg("close journal")
	}
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("close account store")
	}
}
