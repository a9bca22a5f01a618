package scheduler

import (
	"context"
	"fmt"

	"painel_leads_backend/internal/leads/repique"
	"painel_leads_backend/platform/config"
	"painel_leads_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *repique.Engine
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *repique.Engine, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskRepiqueTick, w.handleRepiqueTick)

	return w, nil
}

func (w *Worker) handleRepiqueTick(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.engine.Run(ctx)
	if err != nil {
		return err
	}
	if summary.WarningsSent > 0 || summary.Reassigned > 0 {
		w.log.Info("repique tick done",
			"warnings_sent", summary.WarningsSent, "reassigned", summary.Reassigned)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
