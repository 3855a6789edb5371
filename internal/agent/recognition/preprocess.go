package recognition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Preprocessor transforms an image before recognition.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// PreprocessConfig tunes the screenshot cleanup pipeline.
type PreprocessConfig struct {
	MinWidth        int     // images narrower than this are upscaled
	DenoiseStrength float64 // gaussian sigma, 0 disables
	ContrastAmount  float64 // percentage, 0 disables
	SharpenStrength float64 // gaussian sigma, 0 disables
}

func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		MinWidth:        1000,
		DenoiseStrength: 0.5,
		ContrastAmount:  20,
		SharpenStrength: 0.5,
	}
}

// NewPipeline builds the preprocessing chain for cfg.
func NewPipeline(cfg PreprocessConfig) []Preprocessor {
	pipeline := []Preprocessor{GrayscaleProcessor{}}
	if cfg.MinWidth > 0 {
		pipeline = append(pipeline, UpscaleProcessor{MinWidth: cfg.MinWidth})
	}
	if cfg.DenoiseStrength > 0 {
		pipeline = append(pipeline, DenoiseProcessor{Strength: cfg.DenoiseStrength})
	}
	if cfg.ContrastAmount != 0 {
		pipeline = append(pipeline, ContrastProcessor{Amount: cfg.ContrastAmount})
	}
	if cfg.SharpenStrength > 0 {
		pipeline = append(pipeline, SharpenProcessor{Strength: cfg.SharpenStrength})
	}
	return pipeline
}

// 灰度处理
type GrayscaleProcessor struct{}

func (GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// UpscaleProcessor enlarges small screenshots; tesseract misreads glyphs under ~20px.
type UpscaleProcessor struct {
	MinWidth int
}

func (p UpscaleProcessor) Process(img image.Image) (image.Image, error) {
	if img.Bounds().Dx() >= p.MinWidth {
		return img, nil
	}
	return imaging.Resize(img, p.MinWidth, 0, imaging.Lanczos), nil
}

// 降噪
type DenoiseProcessor struct {
	Strength float64
}

func (p DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.Strength), nil
}

type ContrastProcessor struct {
	Amount float64
}

func (p ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.Amount), nil
}

// 锐化
type SharpenProcessor struct {
	Strength float64
}

func (p SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.Strength), nil
}

// Preprocess decodes data, runs it through pipeline and re-encodes it as PNG.
func Preprocess(data []byte, pipeline []Preprocessor) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	for _, p := range pipeline {
		img, err = p.Process(img)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if img == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeConfig reports the format and size of data without decoding pixels.
func DecodeConfig(data []byte) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}
