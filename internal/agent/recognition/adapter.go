// Package recognition wraps optical text recognition engines behind a single
// adapter that reports progress and isolates engine failures.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// Language is the only recognition language the adapter asks engines for.
const Language = "eng"

var (
	// ErrEngineNotReady is returned when recognition is requested before the engine initialized.
	ErrEngineNotReady = errors.New("recognition engine not ready")
	// ErrRecognitionFailed wraps any engine failure.
	ErrRecognitionFailed = errors.New("recognition failed")
)

type Adapter struct {
	engine Engine
	logger logger.Logger
}

func NewAdapter(engine Engine, log logger.Logger) *Adapter {
	return &Adapter{
		engine: engine,
		logger: log.Named("recognition"),
	}
}

// EngineName returns the name of the wrapped engine.
func (a *Adapter) EngineName() string {
	return a.engine.Name()
}

// Ready reports the readiness of the wrapped engine.
func (a *Adapter) Ready() bool {
	return a.engine.Ready()
}

// Recognize starts recognizing image and returns immediately. It fails fast
// with ErrEngineNotReady when the engine is still initializing. Calls on
// different images run independently.
func (a *Adapter) Recognize(ctx context.Context, image []byte) (*Recognition, error) {
	if !a.engine.Ready() {
		a.logger.Warn("Recognition requested before engine is ready",
			logger.String("engine", a.engine.Name()),
		)
		return nil, ErrEngineNotReady
	}

	r := &Recognition{
		// progress values are distinct and increasing within [0,100], so 101 slots never block
		progress: make(chan int, 101),
		done:     make(chan struct{}),
		last:     -1,
	}
	go a.run(ctx, r, image)
	return r, nil
}

func (a *Adapter) run(ctx context.Context, r *Recognition, image []byte) {
	start := time.Now()
	text, err := a.recognize(ctx, r, image)
	r.closeProgress()

	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
		a.logger.Error("Recognition failed",
			logger.String("engine", a.engine.Name()),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
	} else {
		r.text = text
		a.logger.Info("Recognition completed",
			logger.String("engine", a.engine.Name()),
			logger.Int("chars", len(text)),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
	close(r.done)
}

func (a *Adapter) recognize(ctx context.Context, r *Recognition, image []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine panic: %v", p)
		}
	}()
	return a.engine.Recognize(ctx, image, Language, r.report)
}

// Recognition is one in-flight recognition run: a progress stream followed by
// exactly one result.
type Recognition struct {
	progress chan int
	done     chan struct{}

	mu     sync.Mutex
	last   int
	closed bool

	text string
	err  error
}

// Progress streams completion percentages for the text recognition phase.
// Values are non-decreasing and within [0,100]. The channel is closed before
// the result becomes available.
func (r *Recognition) Progress() <-chan int {
	return r.progress
}

// Done is closed once the result is available.
func (r *Recognition) Done() <-chan struct{} {
	return r.done
}

// Result blocks until recognition ends and returns the recognized text.
func (r *Recognition) Result() (string, error) {
	<-r.done
	return r.text, r.err
}

func (r *Recognition) report(s Status) {
	if s.Phase != PhaseRecognizing {
		return
	}
	pct := percent(s.Progress)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || pct <= r.last {
		return
	}
	r.last = pct
	r.progress <- pct
}

func (r *Recognition) closeProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.progress)
	}
}

func percent(fraction float64) int {
	if math.IsNaN(fraction) {
		return 0
	}
	pct := int(math.Round(fraction * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
