package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
)

type handlerFunc func(ctx context.Context, task *queue.Task) error

func (f handlerFunc) HandleExtraction(ctx context.Context, task *queue.Task) error {
	return f(ctx, task)
}

func newTestWorker(h handlerFunc) *ExtractionWorker {
	cfg := ConfigFromRedis(&config.RedisConfig{Addr: "localhost:6379", WorkerConcurrency: 1})
	return NewExtractionWorker(cfg, h, logger.NewTestLogger())
}

func asynqTask(t *testing.T, task *queue.Task) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(task)
	require.NoError(t, err)
	return asynq.NewTask(task.Type, payload)
}

func TestHandleExtractionDecodesTask(t *testing.T) {
	var got *queue.Task
	w := newTestWorker(func(_ context.Context, task *queue.Task) error {
		got = task
		return nil
	})

	task := &queue.Task{
		ID:      "t-1",
		Type:    queue.TaskTypeExtractionImage,
		Payload: map[string]string{"fileKey": "uploads/t-1.png", "quoteId": "COT-1"},
	}
	require.NoError(t, w.handleExtraction(context.Background(), asynqTask(t, task)))
	require.NotNil(t, got)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, "COT-1", got.Payload["quoteId"])
}

func TestHandleExtractionSkipsRetry(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"recognition failure", fmt.Errorf("%w: bad image", recognition.ErrRecognitionFailed), true},
		{"unreadable pdf", fmt.Errorf("%w: no xref", document.ErrDocumentUnreadable), true},
		{"engine warming up", recognition.ErrEngineNotReady, false},
		{"storage outage", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(func(context.Context, *queue.Task) error { return tt.err })
			task := &queue.Task{ID: "t-2", Type: queue.TaskTypeExtractionPDF, Payload: map[string]string{"fileKey": "k"}}

			err := w.handleExtraction(context.Background(), asynqTask(t, task))
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleExtractionRejectsMalformedPayload(t *testing.T) {
	called := false
	w := newTestWorker(func(context.Context, *queue.Task) error {
		called = true
		return nil
	})

	err := w.handleExtraction(context.Background(), asynq.NewTask(queue.TaskTypeExtractionImage, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.handleExtraction(context.Background(), asynqTask(t, &queue.Task{Type: queue.TaskTypeExtractionImage}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)
}

func TestConfigFromRedis(t *testing.T) {
	cfg := ConfigFromRedis(&config.RedisConfig{Addr: "redis:6379", Password: "pw", DB: 2, WorkerConcurrency: 8})
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.RetryBase)
	assert.Contains(t, cfg.Queues, "default")
}
