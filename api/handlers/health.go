package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/quote-extractor/internal/service/extraction"
)

type HealthHandler struct {
	orchestrator *extraction.Orchestrator
}

func NewHealthHandler(o *extraction.Orchestrator) *HealthHandler {
	return &HealthHandler{orchestrator: o}
}

// Check reports 200 once the recognition engine is ready and 503 while it
// is still warming up. Text extraction works either way.
func (h *HealthHandler) Check(c *gin.Context) {
	ready := h.orchestrator.Ready()
	status := http.StatusOK
	state := "ok"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "starting"
	}
	c.JSON(status, gin.H{
		"status": state,
		"engine": gin.H{
			"name":  h.orchestrator.EngineName(),
			"ready": ready,
		},
	})
}
