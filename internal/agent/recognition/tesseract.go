package recognition

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/quote-extractor/pkg/logger"
)

type TesseractConfig struct {
	TessdataPrefix string
	PageSegMode    gosseract.PageSegMode
	Preprocess     bool
	Preprocessing  PreprocessConfig
}

func DefaultTesseractConfig() *TesseractConfig {
	return &TesseractConfig{
		PageSegMode:   gosseract.PSM_AUTO,
		Preprocess:    true,
		Preprocessing: DefaultPreprocessConfig(),
	}
}

// TesseractEngine recognizes text with a local tesseract install. It reports
// not ready until Warmup succeeds.
type TesseractEngine struct {
	logger   logger.Logger
	config   *TesseractConfig
	pipeline []Preprocessor
	ready    atomic.Bool
}

func NewTesseractEngine(log logger.Logger, cfg *TesseractConfig) *TesseractEngine {
	if cfg == nil {
		cfg = DefaultTesseractConfig()
	}
	e := &TesseractEngine{
		logger: log.Named("tesseract"),
		config: cfg,
	}
	if cfg.Preprocess {
		e.pipeline = NewPipeline(cfg.Preprocessing)
	}
	return e
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Ready() bool { return e.ready.Load() }

// Warmup loads the language data once by recognizing a blank page and marks
// the engine ready.
func (e *TesseractEngine) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Info("Warming up tesseract",
		logger.String("version", gosseract.Version()),
		logger.String("language", Language),
	)

	blank := imaging.New(64, 32, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blank, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode warmup image: %w", err)
	}

	client, err := e.newClient(Language)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to set warmup image: %w", err)
	}
	if _, err := client.Text(); err != nil {
		return fmt.Errorf("failed to load language data: %w", err)
	}

	e.ready.Store(true)
	e.logger.Info("Tesseract ready")
	return nil
}

// Recognize runs one recognition on a fresh client. Tesseract does not expose
// intermediate progress, so the recognizing phase reports only 0 and 1.
func (e *TesseractEngine) Recognize(ctx context.Context, data []byte, lang string, report StatusFunc) (string, error) {
	report(Status{Phase: PhaseInitializing, Progress: 0})
	// 为每个任务创建新的 Tesseract 客户端
	client, err := e.newClient(lang)
	if err != nil {
		return "", err
	}
	defer client.Close()
	report(Status{Phase: PhaseInitializing, Progress: 1})
	report(Status{Phase: PhaseLoadingLanguage, Progress: 1})

	if len(e.pipeline) > 0 {
		report(Status{Phase: PhasePreprocessing, Progress: 0})
		processed, err := Preprocess(data, e.pipeline)
		if err != nil {
			return "", err
		}
		data = processed
		report(Status{Phase: PhasePreprocessing, Progress: 1})
	} else if _, _, _, err := DecodeConfig(data); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	report(Status{Phase: PhaseRecognizing, Progress: 0})
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	report(Status{Phase: PhaseRecognizing, Progress: 1})

	return text, nil
}

func (e *TesseractEngine) newClient(lang string) (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if e.config.TessdataPrefix != "" {
		client.TessdataPrefix = e.config.TessdataPrefix
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(e.config.PageSegMode); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return client, nil
}

func (e *TesseractEngine) Close() error {
	e.ready.Store(false)
	return nil
}
