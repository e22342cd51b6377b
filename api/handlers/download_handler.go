package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	coordinator *app.DownloadCoordinator
	repo        domain.CatalogRepository
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(coordinator *app.DownloadCoordinator, repo domain.CatalogRepository, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		coordinator: coordinator,
		repo:        repo,
		logger:      logger,
	}
}

// AddDownloadsRequest represents a request to download a batch of songs
type AddDownloadsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// AddDownloads handles POST /api/v1/downloads. It answers immediately;
// fetches proceed in the background.
func (h *DownloadHandler) AddDownloads(c *gin.Context) {
	var req AddDownloadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.coordinator.Request(c.Request.Context(), req.IDs)
	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid song id"})
		return
	}

	record, err := h.repo.FindByID(id)
	if err != nil {
		h.logger.Error("Failed to load record", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		code, err := strconv.Atoi(status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 0, 1 or 2"})
			return
		}
		filters["status"] = domain.DownloadStatus(code)
	}

	records, err := h.repo.FindAll(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteDownload handles DELETE /api/v1/downloads/:id. Only the catalog
// record is removed; the audio file stays on disk.
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid song id"})
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.logger.Error("Failed to delete record", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
