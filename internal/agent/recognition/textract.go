package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// TextractAPI is the subset of the textract client the engine calls.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

type TextractConfig struct {
	Region        string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

// TextractEngine recognizes text with AWS Textract. It is ready as soon as the
// client exists; the language hint is ignored since Textract detects it.
type TextractEngine struct {
	client TextractAPI
	logger logger.Logger
	config *TextractConfig
}

func NewTextractEngine(ctx context.Context, cfg *TextractConfig, log logger.Logger) (*TextractEngine, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"",
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return NewTextractEngineWithClient(textract.NewFromConfig(awsCfg), cfg, log), nil
}

// NewTextractEngineWithClient wraps an existing client.
func NewTextractEngineWithClient(client TextractAPI, cfg *TextractConfig, log logger.Logger) *TextractEngine {
	return &TextractEngine{
		client: client,
		logger: log.Named("textract"),
		config: cfg,
	}
}

func (e *TextractEngine) Name() string { return "textract" }

func (e *TextractEngine) Ready() bool { return e.client != nil }

func (e *TextractEngine) Recognize(ctx context.Context, data []byte, _ string, report StatusFunc) (string, error) {
	report(Status{Phase: PhaseRecognizing, Progress: 0})

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := e.lines(result.Blocks)
	e.logger.Debug("Textract detected lines",
		logger.Int("blocks", len(result.Blocks)),
		logger.Int("lines", len(lines)),
	)
	report(Status{Phase: PhaseRecognizing, Progress: 1})

	return strings.Join(lines, "\n"), nil
}

// lines keeps LINE blocks at or above the configured confidence, in reading order.
func (e *TextractEngine) lines(blocks []types.Block) []string {
	var texts []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if aws.ToFloat32(block.Confidence) < e.config.MinConfidence {
			continue
		}
		texts = append(texts, *block.Text)
	}
	return texts
}

func (e *TextractEngine) Close() error {
	// textract client doesn't need special cleanup
	return nil
}
