package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/internal/service/quote"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
)

type Handlers struct {
	Extraction *ExtractionHandler
	Jobs       *JobHandler
	Quote      *QuoteHandler
	Health     *HealthHandler
}

// NewHandlers wires the API. jobs may be nil when no queue is configured; the
// job routes are then left out.
func NewHandlers(
	orchestrator *extraction.Orchestrator,
	jobs extraction.JobProcessor,
	quotes *quote.Service,
	uploads *validator.UploadValidator,
	maxUploadBytes int64,
	log logger.Logger,
) *Handlers {
	h := &Handlers{
		Extraction: NewExtractionHandler(orchestrator, uploads, maxUploadBytes, log),
		Quote:      NewQuoteHandler(quotes, log),
		Health:     NewHealthHandler(orchestrator),
	}
	if jobs != nil {
		h.Jobs = NewJobHandler(jobs, log)
	}
	return h
}

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string                      `json:"error"`
	Message string                      `json:"message"`
	Details []validator.ValidationError `json:"details,omitempty"`
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verr *validator.Error
	switch {
	case errors.Is(err, recognition.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, recognition.ErrRecognitionFailed),
		errors.Is(err, document.ErrDocumentUnreadable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verr),
		errors.Is(err, errBadRequest),
		errors.Is(err, extraction.ErrEmptyImage),
		errors.Is(err, quote.ErrMalformed),
		errors.Is(err, quote.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, quote.ErrNotFound),
		errors.Is(err, queue.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, extraction.ErrNotCompleted):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleError 统一错误处理
func handleError(c *gin.Context, log logger.Logger, message string, err error) {
	status := statusFor(err)
	l := logger.FromContext(c.Request.Context(), log)
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		l.Error(message, fields...)
	} else {
		l.Warn(message, fields...)
	}

	response := ErrorResponse{
		Error:   err.Error(),
		Message: message,
	}
	var verr *validator.Error
	if errors.As(err, &verr) {
		response.Details = verr.Errors
	}
	c.AbortWithStatusJSON(status, response)
}

// readUpload reads the multipart "file" field, at most limit bytes.
func readUpload(c *gin.Context, limit int64) (string, []byte, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return "", nil, badRequest("invalid file upload: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return header.Filename, data, nil
}
