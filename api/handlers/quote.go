package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/internal/service/quote"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// maxImportBytes bounds an imported quote document.
const maxImportBytes = 1 << 20

type QuoteHandler struct {
	service *quote.Service
	logger  logger.Logger
}

func NewQuoteHandler(service *quote.Service, log logger.Logger) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		logger:  log.Named("api.quotes"),
	}
}

func (h *QuoteHandler) Get(c *gin.Context) {
	q, err := h.service.Get(c.Request.Context(), c.Param("quoteId"))
	if err != nil {
		handleError(c, h.logger, "Failed to get quote", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Put replaces the quote. Fields the body omits take their default values.
func (h *QuoteHandler) Put(c *gin.Context) {
	id := c.Param("quoteId")
	q := h.service.Default(id)
	if err := c.ShouldBindJSON(q); err != nil {
		handleError(c, h.logger, "Invalid quote", badRequest("%v", err))
		return
	}
	if err := h.service.Save(c.Request.Context(), id, q); err != nil {
		handleError(c, h.logger, "Failed to save quote", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QuoteHandler) Delete(c *gin.Context) {
	id := c.Param("quoteId")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handleError(c, h.logger, "Failed to delete quote", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Quote deleted",
		"quoteId": id,
	})
}

func (h *QuoteHandler) Reset(c *gin.Context) {
	q, err := h.service.Reset(c.Request.Context(), c.Param("quoteId"))
	if err != nil {
		handleError(c, h.logger, "Failed to reset quote", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ApplyFields merges a field update map into the quote.
func (h *QuoteHandler) ApplyFields(c *gin.Context) {
	var updates models.FieldUpdateMap
	if err := c.ShouldBindJSON(&updates); err != nil {
		handleError(c, h.logger, "Invalid field updates", badRequest("%v", err))
		return
	}

	id := c.Param("quoteId")
	applied, err := h.service.ApplyUpdates(c.Request.Context(), id, updates)
	if err != nil {
		handleError(c, h.logger, "Failed to apply field updates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quoteId": id,
		"applied": applied,
	})
}

// Export downloads the quote as an indented JSON document.
func (h *QuoteHandler) Export(c *gin.Context) {
	name, data, err := h.service.Export(c.Request.Context(), c.Param("quoteId"))
	if err != nil {
		handleError(c, h.logger, "Failed to export quote", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, "application/json", data)
}

// Import accepts an exported document either as the raw body or as a
// multipart "file" field.
func (h *QuoteHandler) Import(c *gin.Context) {
	var (
		data []byte
		err  error
	)
	if file, _, ferr := c.Request.FormFile("file"); ferr == nil {
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, maxImportBytes))
	} else {
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	}
	if err != nil {
		handleError(c, h.logger, "Failed to read quote document", err)
		return
	}

	q, err := h.service.Import(c.Request.Context(), c.Param("quoteId"), data)
	if err != nil {
		handleError(c, h.logger, "Failed to import quote", err)
		return
	}
	c.JSON(http.StatusOK, q)
}
