package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/pkg/logger"
	"github.com/hibiken/asynq"
)

// Worker consumes digest jobs from the async queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *DigestJob) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled; the caller skips starting it.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) SetProcessor(processor func(context.Context, *DigestJob) error) {
	w.processor = processor
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeDigest, w.handleDigestJob)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting digest worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleDigestJob(ctx context.Context, t *asynq.Task) error {
	var job DigestJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		logger.Warnf("[Worker] Failed to unmarshal digest job: %v", err)
		return err
	}

	if w.processor == nil {
		logger.Warnf("[Worker] no processor set")
		return nil
	}

	return w.processor(ctx, &job)
}
