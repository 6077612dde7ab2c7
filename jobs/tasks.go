package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyEmail is the task type for outbound member emails.
	TaskTypeNotifyEmail = "notify:email"
	// TaskTypeNotifySMS is the task type for outbound member SMS messages.
	TaskTypeNotifySMS = "notify:sms"
)

// NotifyEmailPayload describes the information required to send an email.
type NotifyEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotifySMSPayload describes the information required to send an SMS.
type NotifySMSPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// NewNotifyEmailTask constructs an Asynq task for an outbound email.
func NewNotifyEmailTask(payload NotifyEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyEmail, data), nil
}

// NewNotifySMSTask constructs an Asynq task for an outbound SMS.
func NewNotifySMSTask(payload NotifySMSPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifySMS, data), nil
}

// NewNotifyEmailHandler processes TaskTypeNotifyEmail tasks. Delivery is a
// log line until the SMTP relay is wired in.
func NewNotifyEmailHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("deliver email",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject),
		)
		return nil
	}
}

// NewNotifySMSHandler processes TaskTypeNotifySMS tasks.
func NewNotifySMSHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifySMSPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("deliver sms", slog.String("to", payload.To))
		return nil
	}
}
