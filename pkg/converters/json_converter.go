package converters

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/quote-extractor/internal/models"
)

// ProcessedExtraction 定义处理后的提取结果, as stored for a finished job.
type ProcessedExtraction struct {
	TaskID      string                `json:"taskId"`
	QuoteID     string                `json:"quoteId,omitempty"`
	Status      string                `json:"status"`
	Updates     models.FieldUpdateMap `json:"updates"`
	Count       int                   `json:"count"`
	Text        string                `json:"text"`
	Metadata    ExtractionMetadata    `json:"metadata"`
	ProcessedAt time.Time             `json:"processedAt"`
}

// ExtractionMetadata 定义提取元数据
type ExtractionMetadata struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	Source       string `json:"source"`
	Engine       string `json:"engine,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	ProcessingMs int64  `json:"processingMs"`
}

// JSONConverter 实现结果转换器
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

// Convert builds the stored document for result.
func (c *JSONConverter) Convert(taskID string, result *models.ExtractionResult) (*ProcessedExtraction, error) {
	if result == nil {
		return nil, fmt.Errorf("no extraction result to convert")
	}
	updates := result.Updates
	if updates == nil {
		updates = models.FieldUpdateMap{}
	}

	return &ProcessedExtraction{
		TaskID:  taskID,
		Status:  "completed",
		Updates: updates,
		Count:   updates.Count(),
		Text:    result.Text,
		Metadata: ExtractionMetadata{
			Source:       string(result.Source),
			Engine:       result.Engine,
			ProcessingMs: result.Duration.Milliseconds(),
		},
		ProcessedAt: time.Now(),
	}, nil
}

func (c *JSONConverter) Encode(doc *ProcessedExtraction) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

func (c *JSONConverter) Decode(r io.Reader) (*ProcessedExtraction, error) {
	var doc ProcessedExtraction
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &doc, nil
}
