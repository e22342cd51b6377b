package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	repo domain.CatalogRepository
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(repo domain.CatalogRepository) *HealthHandler {
	return &HealthHandler{
		repo: repo,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Catalog struct {
		Records int64 `json:"records"`
	} `json:"catalog"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	if count, err := h.repo.Count(); err == nil {
		response.Catalog.Records = count
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := h.repo.Count(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "catalog unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
