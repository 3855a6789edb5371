package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
)

// ExtractionHandler runs one queued extraction.
type ExtractionHandler interface {
	HandleExtraction(ctx context.Context, task *queue.Task) error
}

type ExtractionWorker struct {
	*BaseWorker
	jobs ExtractionHandler
}

func NewExtractionWorker(cfg *Config, jobs ExtractionHandler, log logger.Logger) *ExtractionWorker {
	w := &ExtractionWorker{
		BaseWorker: newBaseWorker(cfg, log.Named("worker")),
		jobs:       jobs,
	}

	// 注册任务处理器
	w.mux.HandleFunc(queue.TaskTypeExtractionImage, w.handleExtraction)
	w.mux.HandleFunc(queue.TaskTypeExtractionPDF, w.handleExtraction)
	return w
}

func (w *ExtractionWorker) handleExtraction(ctx context.Context, t *asynq.Task) error {
	// 反序列化任务
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.String("type", t.Type()),
			logger.Error(err),
		)
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	// 检查必要字段
	if task.ID == "" || task.Payload["fileKey"] == "" {
		w.logger.Error("Invalid task data",
			logger.String("taskId", task.ID),
			logger.Any("payload", task.Payload),
		)
		return fmt.Errorf("invalid task data: missing required fields: %w", asynq.SkipRetry)
	}

	w.logger.Info("Processing extraction task",
		logger.String("taskId", task.ID),
		logger.String("type", task.Type),
		logger.Any("metadata", task.Metadata),
	)

	if err := w.jobs.HandleExtraction(ctx, &task); err != nil {
		if permanent(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// permanent reports failures that fail again on retry with the same input.
// A not-ready engine is left to the retry policy.
func permanent(err error) bool {
	var verr *validator.Error
	return errors.Is(err, recognition.ErrRecognitionFailed) ||
		errors.Is(err, document.ErrDocumentUnreadable) ||
		errors.As(err, &verr)
}
