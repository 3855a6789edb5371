package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// JobHandler serves background extraction jobs.
type JobHandler struct {
	service extraction.JobProcessor
	logger  logger.Logger
}

// JobResponse 定义处理响应结构
type JobResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	Filename  string `json:"filename"`
	QuoteID   string `json:"quoteId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func NewJobHandler(service extraction.JobProcessor, log logger.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  log.Named("api.jobs"),
	}
}

func jobResponse(task *models.ProcessingTask) JobResponse {
	return JobResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Type:      task.Type,
		Filename:  task.Metadata["filename"],
		QuoteID:   task.Metadata["quoteId"],
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	}
}

// Submit queues one upload; the optional quoteId form field names the quote
// that receives the updates.
func (h *JobHandler) Submit(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		handleError(c, h.logger, "Invalid file upload", badRequest("%v", err))
		return
	}
	defer file.Close()

	task, err := h.service.SubmitFile(c.Request.Context(), file, header, c.PostForm("quoteId"))
	if err != nil {
		handleError(c, h.logger, "Failed to submit file", err)
		return
	}
	c.JSON(http.StatusAccepted, jobResponse(task))
}

// SubmitBatch 批量提交
func (h *JobHandler) SubmitBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		handleError(c, h.logger, "Invalid form data", badRequest("%v", err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		handleError(c, h.logger, "No files provided", badRequest("form field files is empty"))
		return
	}

	var quoteID string
	if ids := form.Value["quoteId"]; len(ids) > 0 {
		quoteID = ids[0]
	}

	tasks, err := h.service.SubmitBatch(c.Request.Context(), files, quoteID)
	if err != nil {
		handleError(c, h.logger, "Failed to submit files", err)
		return
	}

	responses := make([]JobResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = jobResponse(task)
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": fmt.Sprintf("Processing %d files", len(files)),
		"tasks":   responses,
	})
}

// GetStatus 获取处理状态
func (h *JobHandler) GetStatus(c *gin.Context) {
	task, err := h.service.GetStatus(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		handleError(c, h.logger, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"metadata":  task.Metadata,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
		"updatedAt": task.UpdatedAt.Format(time.RFC3339),
	})
}

// GetResult returns the result document of a completed job.
func (h *JobHandler) GetResult(c *gin.Context) {
	taskID := c.Param("taskId")
	result, err := h.service.GetResult(c.Request.Context(), taskID)
	if err != nil {
		handleError(c, h.logger, "Failed to get result", err)
		return
	}

	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=result_%s.json", taskID))
	}
	c.JSON(http.StatusOK, result)
}

// CancelTask 取消处理任务
func (h *JobHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		handleError(c, h.logger, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}
