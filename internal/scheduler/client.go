package scheduler

import (
	"crypto/tls"
	"fmt"

	"painel_leads_backend/platform/config"
	"painel_leads_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Enqueuer registers the periodic repique tick with asynq's scheduler.
type Enqueuer struct {
	scheduler *asynq.Scheduler
	queue     string
	tick      string
	log       *logger.Logger
}

func NewEnqueuer(cfg config.SchedulerConfig, repiqueCfg config.RepiqueConfig, log *logger.Logger) (*Enqueuer, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Enqueuer{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{}),
		queue:     queue,
		tick:      fmt.Sprintf("@every %s", repiqueCfg.GetRepiqueTick()),
		log:       log,
	}, nil
}

// Run registers the tick and blocks until the scheduler stops.
func (e *Enqueuer) Run() error {
	entry, err := e.scheduler.Register(e.tick, NewRepiqueTickTask(), asynq.Queue(e.queue))
	if err != nil {
		return fmt.Errorf("registering repique tick: %w", err)
	}
	e.log.Info("repique tick registered", "entry_id", entry, "cadence", e.tick)
	return e.scheduler.Run()
}

func (e *Enqueuer) Shutdown() {
	if e != nil && e.scheduler != nil {
		e.scheduler.Shutdown()
	}
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
