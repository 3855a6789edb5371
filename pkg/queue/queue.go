// pkg/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskType 定义任务类型
const (
	TaskTypeExtractionImage = "extraction:image"
	TaskTypeExtractionPDF   = "extraction:pdf"
)

// Task states written to the status key.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

const statusTTL = 24 * time.Hour

var queueNames = []string{"critical", "default", "low"}

// ErrTaskNotFound is returned when neither the status key nor any queue knows the task.
var ErrTaskNotFound = errors.New("task not found")

// Queue 接口定义
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, status *TaskStatus) error
}

// Task 定义任务结构
type Task struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Payload   map[string]string `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TaskStatus 定义任务状态. Progress is a percentage in [0,100].
type TaskStatus struct {
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	FieldCount int       `json:"fieldCount,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Terminal reports whether no further updates are expected.
func (s *TaskStatus) Terminal() bool {
	switch s.Status {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// AsynqQueue 实现
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	config    *QueueConfig
}

// QueueConfig 定义队列配置
type QueueConfig struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MaxRetries     int
	ProcessTimeout time.Duration
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
		config:    cfg,
	}, nil
}

// Enqueue 将任务加入队列
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(q.config.MaxRetries),
		asynq.Timeout(q.config.ProcessTimeout),
		asynq.TaskID(task.ID),
		asynq.Retention(statusTTL),
		asynq.Queue(queueFor(task.Priority)),
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(task.Type, payload), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	task.ID = info.ID
	return nil
}

// 根据优先级选择队列
func queueFor(priority int) string {
	switch priority {
	case 1:
		return "critical"
	case 2:
		return "default"
	default:
		return "low"
	}
}

// GetTaskStatus 获取任务状态
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	// 首先尝试从 Redis 获取状态
	data, err := q.redis.Get(ctx, statusKey(taskID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	if err == nil {
		var status TaskStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	// 如果 Redis 中没有，从所有队列中查找
	for _, queueName := range queueNames {
		info, err := q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			return convertAsynqStatus(info), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// CancelTask 取消任务: pending tasks are deleted, running ones are signalled.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	for _, queueName := range queueNames {
		info, err := q.inspector.GetTaskInfo(queueName, taskID)
		if err != nil {
			continue
		}
		if info.State == asynq.TaskStateActive {
			err = q.inspector.CancelProcessing(taskID)
		} else {
			err = q.inspector.DeleteTask(queueName, taskID)
		}
		if err != nil {
			return fmt.Errorf("failed to cancel task: %w", err)
		}
		return q.SaveStatus(ctx, &TaskStatus{
			TaskID:     taskID,
			Status:     StateCancelled,
			FinishedAt: time.Now(),
		})
	}
	return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// SaveStatus 保存任务状态
func (q *AsynqQueue) SaveStatus(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, statusKey(status.TaskID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	if err := q.inspector.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func statusKey(taskID string) string {
	return fmt.Sprintf("task_status:%s", taskID)
}

// convertAsynqStatus 将 asynq 状态转换为 TaskStatus
func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		status.Status = StatePending
		status.Error = info.LastErr
	case asynq.TaskStateActive:
		status.Status = StateRunning
	case asynq.TaskStateCompleted:
		status.Status = StateCompleted
		status.Progress = 100
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateArchived:
		status.Status = StateFailed
		status.Error = info.LastErr
		status.FinishedAt = info.LastFailedAt
	default:
		status.Status = StatePending
	}
	return status
}
