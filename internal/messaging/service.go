// Package messaging queues outbound member notifications (email, SMS).
// Enqueueing is synchronous and cheap; delivery happens in the worker.
package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pamoja-sacco/pamoja-sacco/jobs"
)

// Enqueuer is the slice of *asynq.Client the service needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service enqueues notification tasks on the default queue.
type Service struct {
	logger *slog.Logger
	client Enqueuer
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, client Enqueuer) *Service {
	return &Service{logger: logger, client: client}
}

// EnqueueEmail queues an email notification.
func (s *Service) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("messaging: recipient required")
	}
	task, err := jobs.NewNotifyEmailTask(jobs.NotifyEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
	return err
}

// EnqueueSMS queues an SMS notification.
func (s *Service) EnqueueSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return errors.New("messaging: recipient required")
	}
	task, err := jobs.NewNotifySMSTask(jobs.NotifySMSPayload{To: to, Body: body})
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
	return err
}
