package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/campus-careers/placement-hub/config"
	"github.com/campus-careers/placement-hub/internal/application/command"
	"github.com/campus-careers/placement-hub/internal/application/eventhandler"
	"github.com/campus-careers/placement-hub/internal/application/query"
	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/internal/infrastructure/messaging"
	"github.com/campus-careers/placement-hub/internal/infrastructure/persistence/memory"
	"github.com/campus-careers/placement-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-careers/placement-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-careers/placement-hub/pkg/circuitbreaker"
	"github.com/campus-careers/placement-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION WIRING
// ══════════════════════════════════════════════════════════════════════════════

// eventBus is what handlers publish to and subscribe on.
type eventBus interface {
	shared.EventBus
	Close() error
}

// app owns every long-lived resource of one invocation.
type app struct {
	cfg *config.Config
	log *slog.Logger

	// requestID tags events published by this invocation.
	requestID string

	db    *postgres.Connection
	file  *memory.FileStore
	cache *redis.Cache
	bus   eventBus
	local *messaging.LocalBus

	metrics *prometheus.Registry

	commands command.Deps
	queries  query.Deps

	closers []func()
}

type stores struct {
	internships  internship.Repository
	applications application.Repository
	users        user.Repository
	companies    company.Repository
	tx           shared.Transactor
	locker       shared.Locker
}

// newApp connects the stores and builds handler dependencies. When
// manageSchema is set the caller runs migrations itself and AutoMigrate is
// skipped.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, manageSchema bool) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: prometheus.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// STORES
	// ─────────────────────────────────────────────────────────────────────────
	st, err := a.openStores(ctx, manageSchema)
	if err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.Enabled {
		if err := a.openCache(ctx); err != nil {
			if cfg.Locking.Backend == config.LockBackendRedis {
				return nil, err
			}
			log.Warn("failed to connect to Redis, caching and fan-out disabled", "error", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// LOCKING
	// ─────────────────────────────────────────────────────────────────────────
	switch cfg.Locking.Backend {
	case config.LockBackendRedis:
		st.locker = redis.NewLocker(a.cache, redis.LockerConfig{
			TTL: cfg.Locking.TTL,
			Retrier: retry.New(
				retry.WithMaxAttempts(cfg.Locking.AcquireAttempts),
				retry.WithInitialDelay(cfg.Locking.RetryDelay),
			),
			Logger: log,
		})
	case config.LockBackendPostgres:
		st.locker = postgres.NewLocker(a.db, log)
	}
	log.Debug("lock backend selected", "backend", cfg.Locking.Backend)

	// ─────────────────────────────────────────────────────────────────────────
	// EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openEventBus(); err != nil {
		return nil, err
	}
	audit := eventhandler.NewAuditLogHandler(log, func() bool {
		return cfg.Features.Enabled(config.FeatureAuditLog, "")
	})
	if err := audit.Subscribe(a.bus); err != nil {
		return nil, fmt.Errorf("failed to subscribe audit log: %w", err)
	}
	if err := eventhandler.NewInternshipFilledHandler(st.applications, log).Subscribe(a.bus); err != nil {
		return nil, fmt.Errorf("failed to subscribe fill handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HANDLER DEPENDENCIES
	// ─────────────────────────────────────────────────────────────────────────
	a.commands = command.Deps{
		Internships:  st.internships,
		Applications: st.applications,
		Users:        st.users,
		Companies:    st.companies,
		Locker:       st.locker,
		Tx:           st.tx,
		Publisher:    a.bus,
		Toggles:      cfg.Features,
		Rules: command.Rules{
			MaxActiveApplications: cfg.Placement.MaxActiveApplications,
			SlotLimit:             cfg.Placement.MaxSlots,
			SeniorYear:            cfg.Placement.SeniorYear,
			DefaultPassword:       cfg.Placement.DefaultPassword,
		},
		Location: cfg.App.Location,
		Logger:   log,
	}
	a.queries = query.Deps{
		Internships:  st.internships,
		Applications: st.applications,
		Users:        st.users,
		Companies:    st.companies,
		SeniorYear:   cfg.Placement.SeniorYear,
		Location:     cfg.App.Location,
		ReportTTL:    redis.TTLReport,
		Logger:       log,
	}
	if a.cache != nil {
		a.queries.Reports = a.cache
	}

	ok = true
	return a, nil
}

func (a *app) openStores(ctx context.Context, manageSchema bool) (*stores, error) {
	if !a.cfg.UsesPostgres() {
		path := a.cfg.Database.StorePath
		m, err := memory.OpenFile(ctx, path, retry.LockRetrier().With(a.logRetries("store file")))
		if err != nil {
			return nil, err
		}
		a.file = m
		a.closers = append(a.closers, m.Close)
		a.log.Debug("using in-memory store", "path", path)
		return &stores{
			internships:  m.Internships,
			applications: m.Applications,
			users:        m.Users,
			companies:    m.Companies,
			tx:           m.Tx,
			locker:       m.Locker,
		}, nil
	}

	dbCfg := a.cfg.Database
	var conn *postgres.Connection
	err := retry.DatabaseRetrier().With(a.logRetries("database")).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, postgres.Config{
			URL:               dbCfg.URL,
			MaxConns:          int32(dbCfg.MaxConns),
			MinConns:          int32(dbCfg.MinConns),
			MaxConnLifetime:   dbCfg.ConnMaxLifetime,
			MaxConnIdleTime:   dbCfg.ConnMaxIdleTime,
			HealthCheckPeriod: time.Minute,
			QueryTimeout:      dbCfg.QueryTimeout,
		})
		if err != nil {
			return retry.Retryable(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = conn
	a.closers = append(a.closers, conn.Close)
	a.log.Debug("database connection established")

	if dbCfg.AutoMigrate && !manageSchema {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) > 0 {
			a.log.Info("migrations applied", "versions", applied)
		}
	}

	return &stores{
		internships:  postgres.NewInternshipRepository(conn),
		applications: postgres.NewApplicationRepository(conn),
		users:        postgres.NewUserRepository(conn),
		companies:    postgres.NewCompanyRepository(conn),
		tx:           conn,
		locker:       postgres.NewLocker(conn, a.log),
	}, nil
}

func (a *app) openCache(ctx context.Context) error {
	rc := a.cfg.Redis
	cfg := redis.DefaultConfig()
	cfg.Host = rc.Host
	cfg.Port = rc.Port
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	cfg.PoolSize = rc.PoolSize
	cfg.MinIdleConns = rc.MinIdleConns
	cfg.DialTimeout = rc.DialTimeout
	cfg.ReadTimeout = rc.ReadTimeout
	cfg.WriteTimeout = rc.WriteTimeout

	var cache *redis.Cache
	err := retry.RedisRetrier().With(a.logRetries("redis")).Do(ctx, func(context.Context) error {
		c, err := redis.NewCache(cfg)
		if err != nil {
			return retry.Retryable(err)
		}
		cache = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.cache = cache
	a.closers = append(a.closers, func() { _ = cache.Close() })
	a.log.Debug("Redis connection established", "addr", cfg.Addr())
	return nil
}

func (a *app) openEventBus() error {
	busCfg := messaging.DefaultLocalConfig()
	busCfg.Logger = a.log
	busCfg.Registerer = a.metrics
	busCfg.Middlewares = []messaging.Middleware{
		messaging.RecoveryMiddleware(a.log),
		messaging.LoggingMiddleware(a.log),
	}

	if a.cache == nil || !a.cfg.Features.Enabled(config.FeatureRedisEventFanout, "") {
		a.local = messaging.NewLocalBus(busCfg)
		a.bus = a.local
		a.closers = append(a.closers, func() { _ = a.local.Close() })
		return nil
	}

	breaker := circuitbreaker.RedisPublishBreaker(func(name string, from, to circuitbreaker.State) {
		a.log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})
	rb, err := messaging.NewFanoutBus(messaging.FanoutConfig{
		Client:  messaging.NewGoRedisClient(a.cache.Client(), false),
		Channel: a.cfg.Redis.EventChannel,
		Local:   busCfg,
		Breaker: breaker,
		Logger:  a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to start Redis event bus: %w", err)
	}
	a.local = rb.Local()
	a.bus = rb
	a.closers = append(a.closers, func() { _ = rb.Close() })
	return nil
}

func (a *app) logRetries(target string) retry.Option {
	return retry.WithOnRetry(func(attempt int, err error, wait time.Duration) {
		a.log.Warn("connect attempt failed",
			"target", target,
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
	})
}

// persist writes the file-backed store back. It is a no-op on PostgreSQL.
func (a *app) persist(ctx context.Context) error {
	if a.file == nil {
		return nil
	}
	if err := a.file.Save(ctx); err != nil {
		return fmt.Errorf("failed to save store file: %w", err)
	}
	return nil
}

// writeMetrics dumps the registry to the configured textfile. Failure is
// logged and never fails the command.
func (a *app) writeMetrics() {
	path := a.cfg.Observability.MetricsTextfile
	if path == "" || a.metrics == nil {
		return
	}
	if err := prometheus.WriteToTextfile(path, a.metrics); err != nil {
		a.log.Warn("failed to write metrics", "path", path, "error", err)
	}
}

// wait blocks until published events have been handled.
func (a *app) wait() {
	if a.local != nil {
		a.local.Wait()
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
