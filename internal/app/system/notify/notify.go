// Package notify delivers templated notifications. Every Notifier is
// best-effort: Send reports whether the message was accepted for delivery and
// never returns an error to the caller.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends the template named key to address with vars.
type Notifier interface {
	Send(ctx context.Context, address, key string, vars map[string]string) bool
}

// Modes accepted by the notify_mode setting.
const (
	ModeDirect = "direct"
	ModeQueue  = "queue"
	ModeLog    = "log"
)

// Log only writes the notification to the structured log. Sensitive variables
// are redacted.
type Log struct {
	log *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{log: logger}
}

func (n *Log) Send(_ context.Context, address, key string, vars map[string]string) bool {
	n.log.Info("notification",
		zap.String("to", address),
		zap.String("template", key),
		zap.Strings("vars", redactedKeys(vars)))
	return true
}

// redactedKeys lists the variable names without their values; generated
// credentials travel in vars and must not reach the log.
func redactedKeys(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for k := range vars {
		out = append(out, k)
	}
	return out
}
