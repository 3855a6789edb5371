package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/converters"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
	"github.com/feichai0017/quote-extractor/pkg/storage"
)

// ErrNotCompleted is returned when a result is requested before the job completed.
var ErrNotCompleted = errors.New("task is not completed")

// QuoteUpdater receives the updates of jobs submitted for a quote.
type QuoteUpdater interface {
	ApplyUpdates(ctx context.Context, quoteID string, updates models.FieldUpdateMap) (int, error)
}

// JobProcessor 异步提取任务接口
type JobProcessor interface {
	SubmitFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, quoteID string) (*models.ProcessingTask, error)
	SubmitBatch(ctx context.Context, files []*multipart.FileHeader, quoteID string) ([]*models.ProcessingTask, error)
	HandleExtraction(ctx context.Context, task *queue.Task) error
	GetStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	GetResult(ctx context.Context, taskID string) (*converters.ProcessedExtraction, error)
	CancelTask(ctx context.Context, taskID string) error
}

type JobConfig struct {
	QueuePriority   int
	MaxConcurrent   int
	RetentionPeriod time.Duration
}

func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		QueuePriority:   2,
		MaxConcurrent:   5,
		RetentionPeriod: 24 * time.Hour,
	}
}

type JobService struct {
	orchestrator *Orchestrator
	queue        queue.Queue
	storage      storage.Storage
	validator    *validator.UploadValidator
	quotes       QuoteUpdater
	converter    *converters.JSONConverter
	logger       logger.Logger
	config       *JobConfig
}

func NewJobService(
	orchestrator *Orchestrator,
	q queue.Queue,
	store storage.Storage,
	v *validator.UploadValidator,
	quotes QuoteUpdater,
	log logger.Logger,
	cfg *JobConfig,
) *JobService {
	if cfg == nil {
		cfg = DefaultJobConfig()
	}
	return &JobService{
		orchestrator: orchestrator,
		queue:        q,
		storage:      store,
		validator:    v,
		quotes:       quotes,
		converter:    converters.NewJSONConverter(),
		logger:       log.Named("jobs"),
		config:       cfg,
	}
}

// SubmitFile validates and stores an image or PDF upload and queues its extraction.
func (s *JobService) SubmitFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
	quoteID string,
) (*models.ProcessingTask, error) {
	s.logger.Info("Submitting extraction",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
		logger.String("quoteId", quoteID),
	)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	// 验证文件
	check := s.validator.Validate(header.Filename, data)
	if err := check.Err(); err != nil {
		return nil, err
	}
	info := check.FileInfo

	taskType := queue.TaskTypeExtractionImage
	if !info.IsImage() {
		taskType = queue.TaskTypeExtractionPDF
	}

	taskID := uuid.New().String()
	now := time.Now()
	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      taskType,
		Priority:  s.config.QueuePriority,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     fmt.Sprintf("%d", info.Size),
			"type":     info.Extension,
			"mimeType": info.MimeType,
			"hash":     info.Hash,
		},
	}
	if quoteID != "" {
		task.Metadata["quoteId"] = quoteID
	}

	// 存储文件
	fileKey, err := s.storage.Store(ctx, bytes.NewReader(data), storage.UploadKey(taskID, info.Extension), info.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     taskType,
		Priority: task.Priority,
		Payload: map[string]string{
			"fileKey": fileKey,
			"quoteId": quoteID,
		},
		Metadata:  task.Metadata,
		CreatedAt: now,
	}

	// 保存初始状态, before Enqueue since the worker overwrites it
	if err := s.queue.SaveStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    queue.StatePending,
		StartedAt: now,
	}); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("Extraction task created",
		logger.String("taskId", taskID),
		logger.String("type", taskType),
	)
	return task, nil
}

// SubmitBatch 批量提交; it stops at the first failing upload and returns the tasks created so far.
func (s *JobService) SubmitBatch(ctx context.Context, files []*multipart.FileHeader, quoteID string) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.SubmitFile(ctx, file, header, quoteID)
			if err != nil {
				return fmt.Errorf("failed to submit file %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// HandleExtraction runs one queued extraction: progress goes to the task
// status, the result document to storage and, for quote jobs, the updates
// into the quote.
func (s *JobService) HandleExtraction(ctx context.Context, task *queue.Task) error {
	if task == nil || task.ID == "" || task.Payload["fileKey"] == "" {
		return fmt.Errorf("invalid task: missing required data")
	}
	// 重试或取消后不再重复处理
	if current, err := s.queue.GetTaskStatus(ctx, task.ID); err == nil && current.Terminal() && current.Status != queue.StateFailed {
		s.logger.Info("Skipping finished task",
			logger.String("taskId", task.ID),
			logger.String("status", current.Status),
		)
		return nil
	}
	startedAt := time.Now()

	s.logger.Info("Processing extraction",
		logger.String("taskId", task.ID),
		logger.String("filename", task.Metadata["filename"]),
	)
	s.saveStatus(ctx, &queue.TaskStatus{TaskID: task.ID, Status: queue.StateRunning, StartedAt: startedAt})

	data, err := s.load(ctx, task.Payload["fileKey"])
	if err != nil {
		return s.fail(ctx, task, startedAt, err)
	}

	var result *models.ExtractionResult
	switch task.Type {
	case queue.TaskTypeExtractionPDF:
		result, err = s.orchestrator.ExtractFromPDF(ctx, data)
	default:
		result, err = s.orchestrator.ExtractFromImage(ctx, data, func(p int) {
			s.saveStatus(ctx, &queue.TaskStatus{
				TaskID:    task.ID,
				Status:    queue.StateRunning,
				Progress:  p,
				StartedAt: startedAt,
			})
		})
	}
	if err != nil {
		return s.fail(ctx, task, startedAt, err)
	}

	doc, err := s.converter.Convert(task.ID, result)
	if err != nil {
		return s.fail(ctx, task, startedAt, err)
	}
	doc.QuoteID = task.Payload["quoteId"]
	doc.Metadata.FileName = task.Metadata["filename"]
	doc.Metadata.FileType = task.Metadata["type"]
	if size, err := strconv.ParseInt(task.Metadata["size"], 10, 64); err == nil {
		doc.Metadata.FileSize = size
	}

	encoded, err := s.converter.Encode(doc)
	if err != nil {
		return s.fail(ctx, task, startedAt, err)
	}
	if _, err := s.storage.Store(ctx, bytes.NewReader(encoded), storage.ResultKey(task.ID), "application/json"); err != nil {
		return s.fail(ctx, task, startedAt, fmt.Errorf("failed to store result: %w", err))
	}

	if quoteID := task.Payload["quoteId"]; quoteID != "" && s.quotes != nil {
		if _, err := s.quotes.ApplyUpdates(ctx, quoteID, result.Updates); err != nil {
			return s.fail(ctx, task, startedAt, fmt.Errorf("failed to update quote %s: %w", quoteID, err))
		}
	}

	// 在处理完成后，将最终状态保存到 Redis
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     queue.StateCompleted,
		Progress:   100,
		FieldCount: result.Count,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	})

	s.logger.Info("Extraction completed",
		logger.String("taskId", task.ID),
		logger.Int("fieldCount", result.Count),
	)
	return nil
}

func (s *JobService) load(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *JobService) fail(ctx context.Context, task *queue.Task, startedAt time.Time, err error) error {
	// a cancelled task already carries its cancelled status
	if errors.Is(err, context.Canceled) {
		s.logger.Info("Extraction cancelled",
			logger.String("taskId", task.ID),
		)
		return err
	}

	s.logger.Error("Extraction failed",
		logger.String("taskId", task.ID),
		logger.Error(err),
	)
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     queue.StateFailed,
		Error:      err.Error(),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	})
	return err
}

func (s *JobService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.String("status", status.Status),
			logger.Error(err),
		)
	}
}

// GetStatus 获取处理状态
func (s *JobService) GetStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	task := &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    models.ProcessingStatus(status.Status),
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  map[string]string{},
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}
	if status.Status == queue.StateCompleted {
		task.Metadata["fieldCount"] = fmt.Sprintf("%d", status.FieldCount)
	}
	return task, nil
}

// GetResult returns the stored result of a completed job.
func (s *JobService) GetResult(ctx context.Context, taskID string) (*converters.ProcessedExtraction, error) {
	status, err := s.GetStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrNotCompleted, status.Status)
	}

	reader, err := s.storage.Get(ctx, storage.ResultKey(taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()
	return s.converter.Decode(reader)
}

// CancelTask 取消任务
func (s *JobService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)
	return nil
}

// CleanupTasks 清理过期的上传和结果
func (s *JobService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)
	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}
	s.logger.Info("Completed tasks cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}
