package agent

import (
	"context"
	"fmt"
	"strings"

	cfg "github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/document/pdf"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// 添加扩展名到 MIME 类型的映射
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// MIMEType maps a file extension to the MIME type the pipeline handles.
func MIMEType(ext string) (string, bool) {
	m, ok := extToMIME[strings.ToLower(ext)]
	return m, ok
}

// EngineFactory builds the configured recognition engine and the document
// sources the pipeline reads text from.
type EngineFactory struct {
	engine  recognition.Engine
	sources map[string]document.Source
	logger  logger.Logger
}

func NewEngineFactory(ctx context.Context, ocr *cfg.OCRConfig, log logger.Logger) (*EngineFactory, error) {
	factory := &EngineFactory{
		sources: make(map[string]document.Source),
		logger:  log,
	}

	// 初始化 PDF 处理器
	factory.sources["application/pdf"] = pdf.NewProcessor(log)

	switch ocr.Engine {
	case cfg.EngineTextract:
		textractCfg := cfg.GetTextractConfig()
		if !textractCfg.Configured() {
			return nil, fmt.Errorf("textract engine selected but AWS credentials are missing")
		}
		engine, err := recognition.NewTextractEngine(ctx, &recognition.TextractConfig{
			Region:        textractCfg.Region,
			AccessKey:     textractCfg.AccessKey,
			SecretKey:     textractCfg.SecretKey,
			MinConfidence: ocr.MinConfidence,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract engine: %w", err)
		}
		factory.engine = engine

	case cfg.EngineTesseract, "":
		tessCfg := recognition.DefaultTesseractConfig()
		tessCfg.TessdataPrefix = ocr.TessdataPrefix
		tessCfg.Preprocess = ocr.Preprocess
		engine := recognition.NewTesseractEngine(log, tessCfg)
		factory.engine = engine

		// 后台加载语言数据，完成前引擎报告未就绪
		go func() {
			if err := engine.Warmup(ctx); err != nil {
				log.Error("Tesseract warmup failed", logger.Error(err))
			}
		}()

	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", ocr.Engine)
	}

	log.Info("Recognition engine selected",
		logger.String("engine", factory.engine.Name()),
	)
	return factory, nil
}

// NewEngineFactoryWith wires an already built engine.
func NewEngineFactoryWith(engine recognition.Engine, log logger.Logger) *EngineFactory {
	sources := map[string]document.Source{
		"application/pdf": pdf.NewProcessor(log),
	}
	return &EngineFactory{
		engine:  engine,
		sources: sources,
		logger:  log,
	}
}

func (f *EngineFactory) Engine() recognition.Engine {
	return f.engine
}

// GetSource returns the text source for a MIME type.
func (f *EngineFactory) GetSource(mimeType string) (document.Source, error) {
	source, ok := f.sources[mimeType]
	if !ok {
		f.logger.Error("No source found",
			logger.String("mimeType", mimeType),
		)
		return nil, fmt.Errorf("no source found for mime type: %s", mimeType)
	}
	return source, nil
}

func (f *EngineFactory) Close() error {
	return f.engine.Close()
}
