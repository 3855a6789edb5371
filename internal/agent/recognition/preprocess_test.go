package recognition

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.White), imaging.PNG))
	return buf.Bytes()
}

func TestPreprocessUpscalesSmallScreenshots(t *testing.T) {
	out, err := Preprocess(encodePNG(t, 200, 100), NewPipeline(DefaultPreprocessConfig()))
	require.NoError(t, err)

	format, w, h, err := DecodeConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 500, h)
}

func TestPreprocessKeepsLargeImages(t *testing.T) {
	out, err := Preprocess(encodePNG(t, 1200, 300), NewPipeline(PreprocessConfig{MinWidth: 1000}))
	require.NoError(t, err)

	_, w, h, err := DecodeConfig(out)
	require.NoError(t, err)
	assert.Equal(t, 1200, w)
	assert.Equal(t, 300, h)
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	_, err := Preprocess([]byte("not an image"), NewPipeline(DefaultPreprocessConfig()))
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestNewPipelineSkipsDisabledSteps(t *testing.T) {
	assert.Len(t, NewPipeline(PreprocessConfig{}), 1)
	assert.Len(t, NewPipeline(DefaultPreprocessConfig()), 5)
}
