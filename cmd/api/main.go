package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"painel_leads_backend/internal/directory"
	"painel_leads_backend/internal/events"
	apphttp "painel_leads_backend/internal/http"
	"painel_leads_backend/internal/http/router"
	"painel_leads_backend/internal/leads"
	"painel_leads_backend/internal/leads/intake"
	leadrepo "painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/internal/leads/repique"
	"painel_leads_backend/internal/notification"
	"painel_leads_backend/internal/notification/push"
	"painel_leads_backend/internal/rotation"
	"painel_leads_backend/internal/webhook"
	"painel_leads_backend/platform/config"
	"painel_leads_backend/platform/db"
	"painel_leads_backend/platform/logger"
	"painel_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	warnGuard := initWarnGuard(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadRepo := leadrepo.New(pool)
	intakeSvc := intake.NewService(leadRepo, eventBus, validator.New(), log)
	engine := repique.NewEngine(leadRepo, warnGuard, eventBus, log, cfg.GetRepiqueBatchSize())

	// Notification module subscribes to domain events and serves subscriptions
	notifRepo := notification.NewRepository(pool)
	pushSender := push.NewSender(cfg, notifRepo, log)
	if !pushSender.Enabled() {
		log.Warn("PUSH_GATEWAY_URL not configured; push notifications disabled")
	}
	notificationModule := notification.NewModule(notifRepo, pushSender, log)
	notificationModule.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(leadRepo, intakeSvc, engine, log)
	webhookModule := webhook.NewModule(pool, intakeSvc)
	directoryModule := directory.NewModule(directory.NewRepository(pool), rotation.NewSelector(pool))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			webhookModule,
			directoryModule,
			notificationModule,
		},
	}

	engineHTTP := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engineHTTP.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initWarnGuard returns the redis-backed warning dedup guard, or a no-op one
// when redis is not configured.
func initWarnGuard(cfg *config.Config, log *logger.Logger) repique.WarnGuard {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; repique warnings may repeat across ticks")
		return repique.NopWarnGuard{}
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; repique warnings may repeat across ticks", "error", err)
		return repique.NopWarnGuard{}
	}
	return repique.NewRedisWarnGuard(redis.NewClient(opt))
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
