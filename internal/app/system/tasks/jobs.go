// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// resolvedDeleter is the part of the request store the reclaim job needs.
type resolvedDeleter interface {
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RequestReclaimJob deletes approved and declined requests that were resolved
// more than retention ago. Open requests are never touched.
func RequestReclaimJob(requests resolvedDeleter, logger *zap.Logger, interval, retention time.Duration) Job {
	return Job{
		Name:     "request-reclaim",
		Interval: interval,
		Run: func(ctx context.Context) error {
			count, err := requests.DeleteResolvedBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("reclaimed resolved requests",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
