// Stillmind Hub server: the meditation stats ledger, reminder opt-in API,
// and the daily reminder dispatcher behind the cron trigger.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stillmind/stillmind-hub/config"
	"github.com/stillmind/stillmind-hub/internal/application/command"
	"github.com/stillmind/stillmind-hub/internal/application/query"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/metrics"
	appnotification "github.com/stillmind/stillmind-hub/internal/infrastructure/notification"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/persistence/postgres"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/persistence/redis"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/scheduler"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/scheduler/jobs"
	httpiface "github.com/stillmind/stillmind-hub/internal/interface/http"
	"github.com/stillmind/stillmind-hub/internal/interface/http/handlers"
	"github.com/stillmind/stillmind-hub/pkg/retry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting stillmind-hub",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────

	kvCfg := redis.DefaultConfig()
	kvCfg.Host = cfg.Redis.Host
	kvCfg.Port = cfg.Redis.Port
	kvCfg.Password = cfg.Redis.Password
	kvCfg.DB = cfg.Redis.DB
	kvCfg.PoolSize = cfg.Redis.PoolSize
	kvCfg.MinIdleConns = cfg.Redis.MinIdleConns
	kvCfg.DialTimeout = cfg.Redis.DialTimeout
	kvCfg.ReadTimeout = cfg.Redis.ReadTimeout
	kvCfg.WriteTimeout = cfg.Redis.WriteTimeout

	var kv *redis.KV
	err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
		var kvErr error
		kv, kvErr = redis.NewKV(kvCfg)
		return kvErr
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = kv.Close() }()

	statsRepo := redis.NewStatsRepository(kv, cfg.Redis.KeyNamespace)
	reminderRepo := redis.NewReminderRepository(kv)
	resolver := redis.NewAddressResolver(kv)

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("redis", handlers.NewPingCheck(kv))

	// Session archive is optional; without DATABASE_URL the ledger alone
	// serves everything but the history endpoint.
	var sessionLog *postgres.SessionLog
	if cfg.Database.Enabled() {
		pgCfg := postgres.DefaultConfig(cfg.Database.URL)
		pgCfg.MaxConns = cfg.Database.MaxConns
		pgCfg.MinConns = cfg.Database.MinConns
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

		var conn *postgres.Connection
		err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
			var pgErr error
			conn, pgErr = postgres.NewConnection(ctx, pgCfg)
			return pgErr
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer conn.Close()

		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		sessionLog = postgres.NewSessionLog(conn)
		healthChecker.AddCheck("postgres", handlers.NewPingCheck(conn))
		logger.Info("session archive enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application services
	// ─────────────────────────────────────────────────────────────────────────

	m := metrics.New()

	sender := appnotification.NewDirectSender(appnotification.SenderConfig{
		TargetURL:               cfg.Notification.TargetURL,
		RequestTimeout:          cfg.Notification.RequestTimeout,
		BreakerFailureThreshold: cfg.Notification.BreakerFailureThreshold,
		BreakerTimeout:          cfg.Notification.BreakerTimeout,
	}, logger)

	var archive command.SessionArchive
	var history query.HistoryReader
	if sessionLog != nil {
		archive = sessionLog
		history = sessionLog
	}

	recordSession := command.NewRecordSessionHandler(statsRepo, archive, m.SessionsRecorded, logger)
	setReminder := command.NewSetReminderHandler(reminderRepo, logger)

	dispatchJob := jobs.NewDailyReminderJob(reminderRepo, statsRepo, sender, resolver, m, logger).
		WithRunTimeout(cfg.Reminder.DispatchTimeout)

	// ─────────────────────────────────────────────────────────────────────────
	// Optional in-process scheduler
	// ─────────────────────────────────────────────────────────────────────────

	if cfg.Reminder.SchedulerEnabled {
		sched := scheduler.New(scheduler.Config{Logger: logger})
		schedule := scheduler.NewDailySchedule(cfg.Reminder.Hour, cfg.Reminder.Minute)
		if err := sched.Register(dispatchJob, schedule); err != nil {
			return fmt.Errorf("registering reminder job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────

	srvCfg := httpiface.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = cfg.Server.IdleTimeout
	srvCfg.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
	srvCfg.CronSecret = cfg.Reminder.CronSecret

	srv := httpiface.NewServer(srvCfg, httpiface.Dependencies{
		RecordSession:  recordSession,
		SetReminder:    setReminder,
		GetStats:       query.NewGetStatsHandler(statsRepo),
		GetReminder:    query.NewGetReminderHandler(reminderRepo),
		GetHistory:     query.NewGetHistoryHandler(history),
		Dispatcher:     dispatchJob,
		HealthChecker:  healthChecker,
		MetricsHandler: m.Handler(),
		Logger:         logger,
	})

	errCh := srv.StartAsync()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("stillmind-hub stopped")
	return nil
}

// setupLogger builds the process-wide slog logger: JSON in production,
// text elsewhere.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", cfg.App.Name),
	}))
}
