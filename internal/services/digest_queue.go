package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskTypeDigest = "report:digest"

// DigestJob is the payload for one project digest delivery.
type DigestJob struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// DigestQueue decouples digest delivery from the request path. The async
// implementation needs Redis; without it, jobs run in-process.
type DigestQueue interface {
	EnqueueDigest(projectID uuid.UUID) error
	IsAsync() bool
	Close() error
}

var (
	globalDigestQueue DigestQueue
	digestQueueOnce   sync.Once
)

// InitDigestQueue picks the queue implementation from config: asynq when
// Redis is enabled and reachable, otherwise the in-process fallback.
func InitDigestQueue(cfg *config.Config) DigestQueue {
	digestQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncDigestQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[DigestQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalDigestQueue = NewSyncDigestQueue()
			} else {
				logger.Infof("[DigestQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalDigestQueue = queue
			}
		} else {
			logger.Infof("[DigestQueue] Sync queue initialized (Redis disabled)")
			globalDigestQueue = NewSyncDigestQueue()
		}
	})
	return globalDigestQueue
}

func GetDigestQueue() DigestQueue {
	return globalDigestQueue
}

// AsyncDigestQueue implements DigestQueue on asynq.
type AsyncDigestQueue struct {
	client *asynq.Client
}

func NewAsyncDigestQueue(cfg *config.RedisConfig) (*AsyncDigestQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncDigestQueue{client: client}, nil
}

func (q *AsyncDigestQueue) EnqueueDigest(projectID uuid.UUID) error {
	payload, err := json.Marshal(&DigestJob{ProjectID: projectID})
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(
		asynq.NewTask(TaskTypeDigest, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Infof("[DigestQueue] Job enqueued: id=%s, project=%s", info.ID, projectID)
	return nil
}

func (q *AsyncDigestQueue) IsAsync() bool { return true }

func (q *AsyncDigestQueue) Close() error { return q.client.Close() }

// SyncDigestQueue runs jobs in-process, off the request goroutine.
type SyncDigestQueue struct {
	processor func(context.Context, *DigestJob) error
}

func NewSyncDigestQueue() *SyncDigestQueue {
	return &SyncDigestQueue{}
}

func (q *SyncDigestQueue) SetProcessor(processor func(context.Context, *DigestJob) error) {
	q.processor = processor
}

func (q *SyncDigestQueue) EnqueueDigest(projectID uuid.UUID) error {
	if q.processor == nil {
		logger.Warnf("[SyncDigestQueue] no processor set, job dropped")
		return nil
	}

	go func() {
		if err := q.processor(context.Background(), &DigestJob{ProjectID: projectID}); err != nil {
			logger.Warnf("[SyncDigestQueue] digest job failed: %v", err)
		}
	}()
	return nil
}

func (q *SyncDigestQueue) IsAsync() bool { return false }

func (q *SyncDigestQueue) Close() error { return nil }
