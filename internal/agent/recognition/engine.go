package recognition

import (
	"context"
)

// Lifecycle phases reported by engines. Only PhaseRecognizing reaches callers.
const (
	PhaseInitializing    = "initializing api"
	PhaseLoadingLanguage = "loading language"
	PhasePreprocessing   = "preprocessing image"
	PhaseRecognizing     = "recognizing text"
)

// Status is one lifecycle notification from an engine. Progress is a fraction in [0,1].
type Status struct {
	Phase    string
	Progress float64
}

// StatusFunc receives engine notifications in the engine's own order.
type StatusFunc func(Status)

// Engine is an optical text recognition backend.
type Engine interface {
	// Name identifies the engine in logs and results.
	Name() string
	// Ready reports whether the engine finished initializing.
	Ready() bool
	// Recognize returns the text found in image, reporting lifecycle status to report.
	Recognize(ctx context.Context, image []byte, lang string, report StatusFunc) (string, error)
	// Close releases engine resources.
	Close() error
}
