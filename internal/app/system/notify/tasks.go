package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/jobhub/internal/app/system/mailer"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeSendEmail is the asynq task type for one notification.
const TypeSendEmail = "notify:send_email"

// EmailPayload is the task body.
type EmailPayload struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
}

func NewSendEmailTask(p EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendEmail, data), nil
}

// Sender is what the worker delivers through.
type Sender interface {
	Render(key, to string, vars map[string]string) (mailer.Email, error)
	Send(ctx context.Context, e mailer.Email) error
}

// Handler processes TypeSendEmail tasks in the worker.
type Handler struct {
	sender Sender
	log    *zap.Logger
}

func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	return &Handler{sender: sender, log: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendEmail, h.HandleSendEmail)
}

// HandleSendEmail renders and delivers one notification. Payload and template
// errors cannot succeed on retry and are marked SkipRetry.
func (h *Handler) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var p EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	email, err := h.sender.Render(p.Template, p.To, p.Vars)
	if err != nil {
		return fmt.Errorf("render %s: %v: %w", p.Template, err, asynq.SkipRetry)
	}
	if err := h.sender.Send(ctx, email); err != nil {
		h.log.Warn("notification delivery failed; will retry",
			zap.String("to", p.To),
			zap.String("template", p.Template),
			zap.Error(err))
		return err
	}
	h.log.Info("notification delivered",
		zap.String("to", p.To),
		zap.String("template", p.Template))
	return nil
}
