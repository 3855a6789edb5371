package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/api/handlers"
	"github.com/feichai0017/quote-extractor/api/middleware"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowedOrigins []string, log logger.Logger) {
	// 全局中间件
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// API 版本组
	v1 := r.Group("/api/v1")

	// 健康检查
	v1.GET("/health", h.Health.Check)

	extract := v1.Group("/extract")
	{
		extract.POST("/text", h.Extraction.ExtractText)
		extract.POST("/image", h.Extraction.ExtractImage)
		extract.POST("/image/stream", h.Extraction.StreamImage)
		extract.POST("/pdf", h.Extraction.ExtractPDF)
	}

	if h.Jobs != nil {
		jobs := extract.Group("/jobs")
		{
			jobs.POST("", h.Jobs.Submit)
			jobs.POST("/batch", h.Jobs.SubmitBatch)
			jobs.GET("/:taskId", h.Jobs.GetStatus)
			jobs.GET("/:taskId/result", h.Jobs.GetResult)
			jobs.DELETE("/:taskId", h.Jobs.CancelTask)
		}
	}

	quotes := v1.Group("/quotes/:quoteId")
	{
		quotes.GET("", h.Quote.Get)
		quotes.PUT("", h.Quote.Put)
		quotes.DELETE("", h.Quote.Delete)
		quotes.POST("/reset", h.Quote.Reset)
		quotes.PATCH("/fields", h.Quote.ApplyFields)
		quotes.GET("/export", h.Quote.Export)
		quotes.POST("/import", h.Quote.Import)
	}
}
