package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/jobhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

// Direct renders synchronously and delivers over SMTP in the background.
type Direct struct {
	mailer  *mailer.Mailer
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDirect(m *mailer.Mailer, logger *zap.Logger, timeout time.Duration) *Direct {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Direct{mailer: m, log: logger, timeout: timeout}
}

// Send returns false when the template cannot be rendered. Delivery failures
// happen after Send has returned and are only logged.
func (d *Direct) Send(_ context.Context, address, key string, vars map[string]string) bool {
	email, err := d.mailer.Render(key, address, vars)
	if err != nil {
		d.log.Warn("notification not rendered",
			zap.String("to", address),
			zap.String("template", key),
			zap.Error(err))
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// Detached from the request: the caller's context ends with the response.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.mailer.Send(ctx, email); err != nil {
			d.log.Warn("notification delivery failed",
				zap.String("to", address),
				zap.String("template", key),
				zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until in-flight deliveries finish or ctx ends.
func (d *Direct) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
