package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	Queues        map[string]int
	// RetryBase is multiplied by the retry count between attempts.
	RetryBase time.Duration
}

// ConfigFromRedis builds the worker config from the shared redis settings,
// serving the queues the extraction jobs are enqueued on.
func ConfigFromRedis(cfg *config.RedisConfig) *Config {
	return &Config{
		RedisAddr:     cfg.Addr,
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		Concurrency:   cfg.WorkerConcurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryBase: 30 * time.Second,
	}
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

func newBaseWorker(cfg *Config, log logger.Logger) *BaseWorker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * cfg.RetryBase
			},
		},
	)
	return &BaseWorker{
		server:   server,
		mux:      asynq.NewServeMux(),
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start runs the server in the background until ctx is done.
func (w *BaseWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.stopChan:
		}
	}()
	return nil
}

func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.server.Shutdown()
	})
	return nil
}
