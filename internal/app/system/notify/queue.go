package notify

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RedisOpt returns the asynq connection options for addr.
func RedisOpt(addr, password string) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password}
}

// NewServer builds the worker-side asynq server.
func NewServer(opt asynq.RedisClientOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"notifications": 6,
			"default":       1,
		},
		Logger: zapAdapter{logger.Sugar()},
	})
}

// Enqueuer is the subset of *asynq.Client the queue notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue hands notifications to the worker through Redis.
type Queue struct {
	client Enqueuer
	log    *zap.Logger
}

func NewQueue(client Enqueuer, logger *zap.Logger) *Queue {
	return &Queue{client: client, log: logger}
}

func (q *Queue) Send(ctx context.Context, address, key string, vars map[string]string) bool {
	task, err := NewSendEmailTask(EmailPayload{To: address, Template: key, Vars: vars})
	if err != nil {
		q.log.Warn("notification not encoded", zap.String("template", key), zap.Error(err))
		return false
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue("notifications"),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		q.log.Warn("notification not enqueued",
			zap.String("to", address),
			zap.String("template", key),
			zap.Error(err))
		return false
	}
	q.log.Debug("notification enqueued",
		zap.String("task_id", info.ID),
		zap.String("template", key))
	return true
}

// zapAdapter satisfies asynq.Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (a zapAdapter) Debug(args ...any) { a.s.Debug(args...) }
func (a zapAdapter) Info(args ...any)  { a.s.Info(args...) }
func (a zapAdapter) Warn(args ...any)  { a.s.Warn(args...) }
func (a zapAdapter) Error(args ...any) { a.s.Error(args...) }
func (a zapAdapter) Fatal(args ...any) { a.s.Fatal(args...) }
