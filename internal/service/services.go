// Package service assembles the extraction pipeline and its collaborators
// from configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfg "github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/internal/agent"
	"github.com/feichai0017/quote-extractor/internal/agent/fields"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/internal/service/quote"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/docstore"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
	"github.com/feichai0017/quote-extractor/pkg/storage"
)

type Services struct {
	Orchestrator *extraction.Orchestrator
	// Jobs is nil when the queue or object storage is unavailable and jobs were optional.
	Jobs    *extraction.JobService
	Quotes  *quote.Service
	Uploads *validator.UploadValidator

	factory *agent.EngineFactory
	queue   *queue.AsynqQueue
	store   docstore.Store
	logger  logger.Logger
}

type Options struct {
	// RequireJobs fails Build when the job backends cannot be reached.
	RequireJobs bool
}

// Build wires every service. ctx bounds engine warm-up.
func Build(ctx context.Context, log logger.Logger, opts Options) (*Services, error) {
	s := &Services{logger: log}

	// 初始化识别引擎
	factory, err := agent.NewEngineFactory(ctx, cfg.GetOCRConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine factory: %w", err)
	}
	s.factory = factory

	resolver, err := newResolver(cfg.GetOCRConfig().VocabularyFile, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	pdfMIME, _ := agent.MIMEType(".pdf")
	pdfSource, err := factory.GetSource(pdfMIME)
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Info("Field extractors loaded", logger.Strings("extractors", resolver.Extractors()))
	s.Orchestrator = extraction.NewOrchestrator(recognition.NewAdapter(factory.Engine(), log), resolver, pdfSource, log)

	uploadCfg := validator.DefaultConfig()
	uploadCfg.MaxFileSize = cfg.GetServerConfig().MaxUploadBytes
	s.Uploads = validator.NewUploadValidator(log.Named("validator"), uploadCfg)

	// 初始化报价存储
	store, err := docstore.NewStore(cfg.GetStoreConfig(), cfg.GetRedisConfig(), log)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize quote store: %w", err)
	}
	s.store = store
	s.Quotes = quote.NewService(store, log)

	if err := s.buildJobs(ctx); err != nil {
		if opts.RequireJobs {
			s.Close()
			return nil, err
		}
		log.Warn("Background extraction jobs disabled", logger.Error(err))
	}
	return s, nil
}

func (s *Services) buildJobs(ctx context.Context) error {
	// 初始化存储
	objects, err := storage.NewStorage(ctx, storage.StorageType(cfg.GetStoreConfig().StorageType), s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 初始化队列
	redisCfg := cfg.GetRedisConfig()
	q, err := queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr:      redisCfg.Addr,
		RedisPassword:  redisCfg.Password,
		RedisDB:        redisCfg.DB,
		MaxRetries:     3,
		ProcessTimeout: 10 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	s.queue = q

	s.Jobs = extraction.NewJobService(s.Orchestrator, q, objects, s.Uploads, s.Quotes, s.logger, nil)
	return nil
}

// newResolver uses the vocabulary file when one is configured.
func newResolver(path string, log logger.Logger) (*fields.Resolver, error) {
	if path == "" {
		return fields.NewResolver(), nil
	}
	catalog, err := fields.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	log.Info("Vocabulary loaded",
		logger.String("path", path),
		logger.Int("brands", len(catalog.Brands)),
		logger.Int("models", len(catalog.Models)),
		logger.Int("engineMakers", len(catalog.EngineMakers)),
	)
	return fields.NewResolver(fields.NewExtractors(catalog)...), nil
}

func (s *Services) Close() error {
	var errs []error
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.factory != nil {
		errs = append(errs, s.factory.Close())
	}
	return errors.Join(errs...)
}
