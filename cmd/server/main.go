package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/api/handlers"
	"github.com/feichai0017/quote-extractor/api/routes"
	"github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/internal/service"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

func main() {
	serverCfg := config.GetServerConfig()

	// init logger
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := service.Build(ctx, log, service.Options{})
	if err != nil {
		log.Error("Failed to initialize services", logger.Error(err))
		os.Exit(1)
	}
	defer services.Close()

	// a nil *JobService must stay a nil interface so the job routes are skipped
	var jobs extraction.JobProcessor
	if services.Jobs != nil {
		jobs = services.Jobs
	}

	// init handlers
	h := handlers.NewHandlers(services.Orchestrator, jobs, services.Quotes, services.Uploads, serverCfg.MaxUploadBytes, log)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = serverCfg.MaxUploadBytes
	routes.SetupRoutes(r, h, serverCfg.AllowedOrigins, log)

	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", serverCfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	log.Info("Shutting down server...")

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
