package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/quote-extractor/pkg/logger"
)

type stubTextract struct {
	out   *textract.DetectDocumentTextOutput
	err   error
	input *textract.DetectDocumentTextInput
}

func (s *stubTextract) DetectDocumentText(_ context.Context, in *textract.DetectDocumentTextInput, _ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	s.input = in
	return s.out, s.err
}

func line(text string, conf float32) types.Block {
	return types.Block{BlockType: types.BlockTypeLine, Text: aws.String(text), Confidence: aws.Float32(conf)}
}

func TestTextractJoinsConfidentLines(t *testing.T) {
	stub := &stubTextract{out: &textract.DetectDocumentTextOutput{
		Blocks: []types.Block{
			{BlockType: types.BlockTypePage},
			line("Freightliner Cascadia 2020", 99),
			{BlockType: types.BlockTypeWord, Text: aws.String("Freightliner"), Confidence: aws.Float32(99)},
			line("~~ smudge ~~", 12),
			line("Precio $1,100,000", 95),
		},
	}}
	e := NewTextractEngineWithClient(stub, &TextractConfig{MinConfidence: 80}, logger.NewNop())
	require.True(t, e.Ready())

	var statuses []Status
	text, err := e.Recognize(context.Background(), []byte("png"), Language, func(s Status) {
		statuses = append(statuses, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Freightliner Cascadia 2020\nPrecio $1,100,000", text)
	assert.Equal(t, []byte("png"), stub.input.Document.Bytes)
	assert.Equal(t, []Status{
		{Phase: PhaseRecognizing, Progress: 0},
		{Phase: PhaseRecognizing, Progress: 1},
	}, statuses)
}

func TestTextractError(t *testing.T) {
	stub := &stubTextract{err: errors.New("throttled")}
	e := NewTextractEngineWithClient(stub, &TextractConfig{}, logger.NewNop())

	_, err := e.Recognize(context.Background(), []byte("png"), Language, func(Status) {})
	assert.ErrorContains(t, err, "throttled")
}
