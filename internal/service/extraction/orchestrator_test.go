package extraction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/fields"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// scriptedEngine replays statuses and returns text or err.
type scriptedEngine struct {
	ready    bool
	statuses []recognition.Status
	text     string
	err      error
	block    chan struct{}
}

func (e *scriptedEngine) Name() string { return "scripted" }
func (e *scriptedEngine) Ready() bool  { return e.ready }
func (e *scriptedEngine) Close() error { return nil }

func (e *scriptedEngine) Recognize(_ context.Context, _ []byte, _ string, report recognition.StatusFunc) (string, error) {
	if e.block != nil {
		<-e.block
	}
	for _, s := range e.statuses {
		report(s)
	}
	return e.text, e.err
}

type stubSource struct {
	doc *document.Document
	err error
}

func (s stubSource) CanProcess(string) bool { return true }
func (s stubSource) Read(context.Context, []byte) (*document.Document, error) {
	return s.doc, s.err
}

func recognizing(fractions ...float64) []recognition.Status {
	out := []recognition.Status{{Phase: recognition.PhaseLoadingLanguage, Progress: 0.3}}
	for _, f := range fractions {
		out = append(out, recognition.Status{Phase: recognition.PhaseRecognizing, Progress: f})
	}
	return out
}

// probeResolver counts how often resolution runs.
func probeResolver(calls *atomic.Int32) *fields.Resolver {
	probe := fields.Extractor{
		Name:   "probe",
		Fields: []models.Field{models.FieldYear},
		Match: func(string) []models.FieldCandidate {
			calls.Add(1)
			return nil
		},
	}
	return fields.NewResolver(append([]fields.Extractor{probe}, fields.DefaultExtractors()...)...)
}

func newOrchestrator(t *testing.T, e recognition.Engine, r *fields.Resolver, src document.Source) *Orchestrator {
	log := logger.Wrap(zaptest.NewLogger(t))
	return NewOrchestrator(recognition.NewAdapter(e, log), r, src, log)
}

func TestExtractFromTextNeverFails(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{}, nil, nil)
	for _, text := range []string{"", "sin datos útiles", "$12"} {
		res := o.ExtractFromText(text, FormatPlain)
		require.NotNil(t, res.Updates)
		assert.Zero(t, res.Count)
		assert.Equal(t, models.SourceText, res.Source)
	}
}

func TestExtractFromTextHTML(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{}, nil, nil)
	res := o.ExtractFromText(`<div>Kenworth</div><div>T680</div><p>Precio &#36;1,250,000</p><script>alert(1)</script>`, FormatHTML)
	assert.Equal(t, "Kenworth", res.Updates[models.FieldBrand])
	assert.Equal(t, "T680", res.Updates[models.FieldModel])
	assert.Equal(t, 1250000.0, res.Updates[models.FieldPrice])
	assert.Equal(t, 3, res.Count)
}

func TestExtractFromImageNotReady(t *testing.T) {
	var calls atomic.Int32
	o := newOrchestrator(t, &scriptedEngine{ready: false}, probeResolver(&calls), nil)

	res, err := o.ExtractFromImage(context.Background(), []byte("png"), nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, recognition.ErrEngineNotReady)
	assert.Zero(t, calls.Load())
}

func TestExtractFromImageNotReadyBeforeEmptyCheck(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{ready: false}, nil, nil)
	for _, img := range [][]byte{nil, {}} {
		res, err := o.ExtractFromImage(context.Background(), img, nil)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, recognition.ErrEngineNotReady)
		assert.NotErrorIs(t, err, ErrEmptyImage)
	}
}

func TestExtractFromImageEmpty(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{ready: true}, nil, nil)
	_, err := o.ExtractFromImage(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestExtractFromImageProgressThenResult(t *testing.T) {
	var calls atomic.Int32
	engine := &scriptedEngine{
		ready:    true,
		statuses: recognizing(0, 0.12, 0.12, 0.5, 0.49, 0.999, 1),
		text:     "Volvo VNL 860 2021\nVIN 4v4nc9eh5mn123456",
	}
	o := newOrchestrator(t, engine, probeResolver(&calls), nil)

	var seen []int
	res, err := o.ExtractFromImage(context.Background(), []byte("png"), func(p int) {
		// resolution must not have started while progress is still flowing
		assert.Zero(t, calls.Load())
		seen = append(seen, p)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 12, 50, 100}, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "VNL", res.Updates[models.FieldModel])
	assert.Equal(t, "4V4NC9EH5MN123456", res.Updates[models.FieldVIN])
	assert.Equal(t, models.SourceImage, res.Source)
	assert.Equal(t, "scripted", res.Engine)
	assert.Equal(t, engine.text, res.Text)
}

func TestExtractFromImageFailureSkipsResolver(t *testing.T) {
	var calls atomic.Int32
	engine := &scriptedEngine{
		ready:    true,
		statuses: recognizing(0.4),
		text:     "Kenworth",
		err:      errors.New("unsupported image format"),
	}
	o := newOrchestrator(t, engine, probeResolver(&calls), nil)

	var seen []int
	res, err := o.ExtractFromImage(context.Background(), []byte("gif"), func(p int) { seen = append(seen, p) })
	assert.Nil(t, res)
	assert.ErrorIs(t, err, recognition.ErrRecognitionFailed)
	assert.Equal(t, []int{40}, seen)
	assert.Zero(t, calls.Load())
}

func TestExtractFromImageNoMatchIsSuccess(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{ready: true, text: "foto del camión"}, nil, nil)
	res, err := o.ExtractFromImage(context.Background(), []byte("png"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Updates)
	assert.Zero(t, res.Count)
}

func TestExtractFromImageAbandoned(t *testing.T) {
	block := make(chan struct{})
	engine := &scriptedEngine{ready: true, block: block}
	// the abandoned recognition logs after the test returns
	log := logger.NewNop()
	o := NewOrchestrator(recognition.NewAdapter(engine, log), nil, nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.ExtractFromImage(ctx, []byte("png"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}

func TestConcurrentImageExtractions(t *testing.T) {
	o := newOrchestrator(t, &scriptedEngine{ready: true, statuses: recognizing(1), text: "Mack Anthem"}, nil, nil)

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			res, err := o.ExtractFromImage(context.Background(), []byte("png"), nil)
			if err == nil && res.Updates[models.FieldBrand] != "Mack" {
				err = errors.New("missing brand")
			}
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestExtractFromPDF(t *testing.T) {
	src := stubSource{doc: &document.Document{Text: "International LT 2020\n300,000 millas", Pages: 2}}
	o := newOrchestrator(t, &scriptedEngine{}, nil, src)

	res, err := o.ExtractFromPDF(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, "International", res.Updates[models.FieldBrand])
	assert.Equal(t, "LT", res.Updates[models.FieldModel])
	assert.Equal(t, "300,000 millas", res.Updates[models.FieldMileage])
	assert.Equal(t, models.SourcePDF, res.Source)
}

func TestExtractFromPDFUnreadable(t *testing.T) {
	src := stubSource{err: document.ErrDocumentUnreadable}
	o := newOrchestrator(t, &scriptedEngine{}, nil, src)

	_, err := o.ExtractFromPDF(context.Background(), []byte("junk"))
	assert.ErrorIs(t, err, document.ErrDocumentUnreadable)
}
