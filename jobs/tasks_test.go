package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyEmailHandler(t *testing.T) {
	handler := NewNotifyEmailHandler(slog.New(slog.DiscardHandler))

	task, err := NewNotifyEmailTask(NotifyEmailPayload{To: "ada@example.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNotifyEmail, task.Type())

	assert.NoError(t, handler(context.Background(), task))
}

func TestNotifySMSHandler(t *testing.T) {
	handler := NewNotifySMSHandler(slog.New(slog.DiscardHandler))

	task, err := NewNotifySMSTask(NotifySMSPayload{To: "+254700000001", Body: "Hello"})
	require.NoError(t, err)

	assert.NoError(t, handler(context.Background(), task))
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	bad := asynq.NewTask(TaskTypeNotifyEmail, []byte("not json"))

	err := NewNotifyEmailHandler(slog.New(slog.DiscardHandler))(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = NewNotifySMSHandler(slog.New(slog.DiscardHandler))(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
