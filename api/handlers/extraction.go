package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// ExtractionHandler serves synchronous extraction.
type ExtractionHandler struct {
	orchestrator *extraction.Orchestrator
	uploads      *validator.UploadValidator
	maxBytes     int64
	logger       logger.Logger
}

type TextRequest struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

// ExtractionResponse is returned by every synchronous extraction.
type ExtractionResponse struct {
	Updates models.FieldUpdateMap `json:"updates"`
	Count   int                   `json:"count"`
	Text    string                `json:"text,omitempty"`
	Source  models.SourceKind     `json:"source"`
	Engine  string                `json:"engine,omitempty"`
	TookMs  int64                 `json:"tookMs"`
}

func NewExtractionHandler(o *extraction.Orchestrator, uploads *validator.UploadValidator, maxBytes int64, log logger.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		orchestrator: o,
		uploads:      uploads,
		maxBytes:     maxBytes,
		logger:       log.Named("api.extraction"),
	}
}

func toResponse(res *models.ExtractionResult) ExtractionResponse {
	return ExtractionResponse{
		Updates: res.Updates,
		Count:   res.Count,
		Text:    res.Text,
		Source:  res.Source,
		Engine:  res.Engine,
		TookMs:  res.Duration.Milliseconds(),
	}
}

// ExtractText resolves pasted listing text.
func (h *ExtractionHandler) ExtractText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, "Invalid request body", badRequest("%v", err))
		return
	}
	format, err := extraction.ParseTextFormat(req.Format)
	if err != nil {
		handleError(c, h.logger, "Invalid text format", badRequest("%v", err))
		return
	}

	res := h.orchestrator.ExtractFromText(req.Text, format)
	c.JSON(http.StatusOK, toResponse(res))
}

// upload reads and validates the request file, requiring an image or a PDF.
func (h *ExtractionHandler) upload(c *gin.Context, wantImage bool) ([]byte, bool) {
	name, data, err := readUpload(c, h.maxBytes)
	if err != nil {
		handleError(c, h.logger, "Invalid file upload", err)
		return nil, false
	}
	check := h.uploads.Validate(name, data)
	if err := check.Err(); err != nil {
		handleError(c, h.logger, "Upload rejected", err)
		return nil, false
	}
	if check.FileInfo.IsImage() != wantImage {
		want := "a PDF"
		if wantImage {
			want = "an image"
		}
		handleError(c, h.logger, "Upload rejected", &validator.Error{Errors: []validator.ValidationError{{
			Code:    validator.CodeInvalidFileType,
			Message: "File must be " + want,
			Field:   "file",
		}}})
		return nil, false
	}
	return data, true
}

// ExtractImage recognizes an uploaded screenshot and resolves its text.
func (h *ExtractionHandler) ExtractImage(c *gin.Context) {
	data, ok := h.upload(c, true)
	if !ok {
		return
	}

	res, err := h.orchestrator.ExtractFromImage(c.Request.Context(), data, nil)
	if err != nil {
		handleError(c, h.logger, "Image extraction failed", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

// StreamImage is ExtractImage over server-sent events: "progress" events
// followed by one "result" or "error" event.
func (h *ExtractionHandler) StreamImage(c *gin.Context) {
	data, ok := h.upload(c, true)
	if !ok {
		return
	}
	if !h.orchestrator.Ready() {
		// fail before the stream starts so the client gets a status code
		handleError(c, h.logger, "Image extraction failed", recognition.ErrEngineNotReady)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	res, err := h.orchestrator.ExtractFromImage(c.Request.Context(), data, func(p int) {
		c.SSEvent("progress", gin.H{"progress": p})
		c.Writer.Flush()
	})
	if err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warn("Streamed extraction failed",
			logger.Error(err),
		)
		c.SSEvent("error", ErrorResponse{Error: err.Error(), Message: "Image extraction failed"})
		c.Writer.Flush()
		return
	}
	c.SSEvent("result", toResponse(res))
	c.Writer.Flush()
}

// ExtractPDF resolves the text layer of an uploaded PDF.
func (h *ExtractionHandler) ExtractPDF(c *gin.Context) {
	data, ok := h.upload(c, false)
	if !ok {
		return
	}

	res, err := h.orchestrator.ExtractFromPDF(c.Request.Context(), data)
	if err != nil {
		handleError(c, h.logger, "PDF extraction failed", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}
