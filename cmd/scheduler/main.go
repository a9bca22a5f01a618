package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"painel_leads_backend/internal/events"
	leadrepo "painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/internal/leads/repique"
	"painel_leads_backend/internal/notification"
	"painel_leads_backend/internal/notification/push"
	"painel_leads_backend/internal/scheduler"
	"painel_leads_backend/platform/config"
	"painel_leads_backend/platform/db"
	"painel_leads_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "tick", cfg.GetRepiqueTick())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// Warnings and reassignment pushes originate here, so the scheduler wires
	// the same notification handlers the API does.
	notifRepo := notification.NewRepository(pool)
	pushSender := push.NewSender(cfg, notifRepo, log)
	if !pushSender.Enabled() {
		log.Warn("PUSH_GATEWAY_URL not configured; push notifications disabled")
	}
	notificationModule := notification.NewModule(notifRepo, pushSender, log)
	notificationModule.RegisterHandlers(eventBus)

	warnGuard := initWarnGuard(cfg, log)
	engine := repique.NewEngine(leadrepo.New(pool), warnGuard, eventBus, log, cfg.GetRepiqueBatchSize())

	enqueuer, err := scheduler.NewEnqueuer(cfg, cfg, log)
	if err != nil {
		log.Error("failed to initialize enqueuer", "error", err)
		panic("failed to initialize enqueuer: " + err.Error())
	}
	go func() {
		<-ctx.Done()
		enqueuer.Shutdown()
	}()
	go func() {
		if err := enqueuer.Run(); err != nil {
			log.Error("enqueuer stopped", "error", err)
		}
	}()

	worker, err := scheduler.NewWorker(cfg, engine, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

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
