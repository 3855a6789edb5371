package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/internal/service"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/worker"
)

func main() {
	serverCfg := config.GetServerConfig()

	// 初始化日志
	outputs := []string{"stdout"}
	if serverCfg.LogFile != "" {
		outputs = append(outputs, serverCfg.LogFile)
	}
	log, err := logger.NewLogger(
		logger.WithLevel(serverCfg.LogLevel),
		logger.WithEncoding(serverCfg.LogEncoding),
		logger.WithOutputPaths(outputs),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 创建上下文和取消函数
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 创建提取服务
	services, err := service.Build(ctx, log, service.Options{RequireJobs: true})
	if err != nil {
		log.Error("Failed to initialize services", logger.Error(err))
		os.Exit(1)
	}
	defer services.Close()

	// 创建 worker
	extractionWorker := worker.NewExtractionWorker(worker.ConfigFromRedis(config.GetRedisConfig()), services.Jobs, log)

	// 启动 worker
	if err := extractionWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 定期清理过期文件
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := services.Jobs.CleanupTasks(ctx); err != nil {
					log.Error("Cleanup failed", logger.Error(err))
				}
			}
		}
	}()

	// 等待中断信号
	<-ctx.Done()

	// 优雅关闭
	log.Info("Shutting down worker...")
	extractionWorker.Stop()
	log.Info("Worker stopped")
}
