package models

import (
	"time"
)

// SourceKind tells which path produced the text that was resolved.
type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceImage SourceKind = "image"
	SourcePDF   SourceKind = "pdf"
)

// ExtractionResult is what an extraction call hands back to its caller.
type ExtractionResult struct {
	Updates  FieldUpdateMap `json:"updates"`
	Count    int            `json:"count"`
	Text     string         `json:"text,omitempty"`
	Source   SourceKind     `json:"source"`
	Engine   string         `json:"engine,omitempty"`
	Duration time.Duration  `json:"-"`
}

// ProcessingTask 异步提取任务
type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  int               `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
