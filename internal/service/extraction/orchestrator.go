// Package extraction turns listing text, screenshots and PDFs into quote field
// updates, synchronously or as background jobs.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/fields"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// ErrEmptyImage is returned when an image extraction gets no bytes.
var ErrEmptyImage = errors.New("empty image")

// ProgressFunc observes recognition progress, in engine order.
type ProgressFunc func(percent int)

// Orchestrator is the entry point of the extraction pipeline. It holds no
// per-call state; concurrent calls are independent.
type Orchestrator struct {
	adapter  *recognition.Adapter
	resolver *fields.Resolver
	pdf      document.Source
	logger   logger.Logger
}

func NewOrchestrator(
	adapter *recognition.Adapter,
	resolver *fields.Resolver,
	pdf document.Source,
	log logger.Logger,
) *Orchestrator {
	if resolver == nil {
		resolver = fields.NewResolver()
	}
	return &Orchestrator{
		adapter:  adapter,
		resolver: resolver,
		pdf:      pdf,
		logger:   log.Named("orchestrator"),
	}
}

// Ready reports whether image extraction can start.
func (o *Orchestrator) Ready() bool {
	return o.adapter.Ready()
}

func (o *Orchestrator) EngineName() string {
	return o.adapter.EngineName()
}

// ExtractFromText resolves text directly. It never fails: text without any
// recognizable pattern yields an empty mapping.
func (o *Orchestrator) ExtractFromText(text string, format TextFormat) *models.ExtractionResult {
	start := time.Now()
	if format == FormatHTML {
		text = plainText(text)
	}
	updates := o.resolver.Resolve(text)
	return &models.ExtractionResult{
		Updates:  updates,
		Count:    updates.Count(),
		Source:   models.SourceText,
		Duration: time.Since(start),
	}
}

// ExtractFromImage recognizes img and resolves the recognized text. Progress
// values are passed to onProgress before the call returns. On any recognition
// failure the resolver is not run and no result is returned. An engine that
// is not ready is reported before the payload is looked at.
func (o *Orchestrator) ExtractFromImage(ctx context.Context, img []byte, onProgress ProgressFunc) (*models.ExtractionResult, error) {
	if !o.adapter.Ready() {
		return nil, recognition.ErrEngineNotReady
	}
	if len(img) == 0 {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	rec, err := o.adapter.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	text, err := o.await(ctx, rec, onProgress)
	if err != nil {
		return nil, err
	}

	updates := o.resolver.Resolve(text)
	o.logger.Info("Image extraction completed",
		logger.String("engine", o.adapter.EngineName()),
		logger.Int("fieldCount", updates.Count()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return &models.ExtractionResult{
		Updates:  updates,
		Count:    updates.Count(),
		Text:     text,
		Source:   models.SourceImage,
		Engine:   o.adapter.EngineName(),
		Duration: time.Since(start),
	}, nil
}

// await forwards progress until the stream closes, then returns the result.
// A cancelled ctx stops waiting; the recognition itself runs to completion.
func (o *Orchestrator) await(ctx context.Context, rec *recognition.Recognition, onProgress ProgressFunc) (string, error) {
	progress := rec.Progress()
	for progress != nil {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if onProgress != nil {
				onProgress(p)
			}
		case <-ctx.Done():
			return "", fmt.Errorf("extraction abandoned: %w", ctx.Err())
		}
	}
	return rec.Result()
}

// ExtractFromPDF resolves the text layer of a PDF. Scanned PDFs without a text
// layer yield an empty mapping.
func (o *Orchestrator) ExtractFromPDF(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	if o.pdf == nil {
		return nil, fmt.Errorf("pdf extraction is not configured")
	}
	start := time.Now()

	doc, err := o.pdf.Read(ctx, data)
	if err != nil {
		return nil, err
	}

	updates := o.resolver.Resolve(doc.Text)
	o.logger.Info("PDF extraction completed",
		logger.Int("pages", doc.Pages),
		logger.Int("fieldCount", updates.Count()),
	)
	return &models.ExtractionResult{
		Updates:  updates,
		Count:    updates.Count(),
		Text:     doc.Text,
		Source:   models.SourcePDF,
		Duration: time.Since(start),
	}, nil
}
