package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
)

// MusicHandler handles metadata and URL resolution requests
type MusicHandler struct {
	client   *infrastructure.NeteaseClient
	resolver *app.QualityResolver
	logger   *zap.Logger
}

// NewMusicHandler creates a new music handler
func NewMusicHandler(client *infrastructure.NeteaseClient, resolver *app.QualityResolver, logger *zap.Logger) *MusicHandler {
	return &MusicHandler{
		client:   client,
		resolver: resolver,
		logger:   logger,
	}
}

// Search handles GET /api/v1/search?q=&limit=&offset=
func (h *MusicHandler) Search(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.client.SearchSongs(c.Request.Context(), keyword, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSong handles GET /api/v1/songs/:id
func (h *MusicHandler) GetSong(c *gin.Context) {
	id, ok := h.songID(c)
	if !ok {
		return
	}

	song, err := h.resolver.Song(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, song)
}

// GetSongURL handles GET /api/v1/songs/:id/url?level=
func (h *MusicHandler) GetSongURL(c *gin.Context) {
	id, ok := h.songID(c)
	if !ok {
		return
	}

	level := domain.QualityLevel(c.DefaultQuery("level", string(domain.LevelExHigh)))
	if !level.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown quality level"})
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), id, level)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetLyric handles GET /api/v1/songs/:id/lyric
func (h *MusicHandler) GetLyric(c *gin.Context) {
	id, ok := h.songID(c)
	if !ok {
		return
	}

	lyric, err := h.client.Lyric(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lyric)
}

// NewSongs handles GET /api/v1/new?area=
func (h *MusicHandler) NewSongs(c *gin.Context) {
	area, _ := strconv.Atoi(c.DefaultQuery("area", "0"))

	songs, err := h.client.NewSongs(c.Request.Context(), area)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": songs})
}

// Recommend handles GET /api/v1/recommend
func (h *MusicHandler) Recommend(c *gin.Context) {
	songs, err := h.client.RecommendSongs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": songs})
}

// Toplist handles GET /api/v1/toplist
func (h *MusicHandler) Toplist(c *gin.Context) {
	charts, err := h.client.Toplist(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": charts})
}

// ArtistSongs handles GET /api/v1/artists/:id/songs?order=&limit=&offset=
func (h *MusicHandler) ArtistSongs(c *gin.Context) {
	id, ok := h.songID(c)
	if !ok {
		return
	}
	order := c.DefaultQuery("order", "hot")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	songs, err := h.client.ArtistSongs(c.Request.Context(), id, order, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": songs})
}

// RedHeart handles GET /redHeart?start=&limit= — the session user's
// liked-songs list, paged the way the legacy consumers expect.
func (h *MusicHandler) RedHeart(c *gin.Context) {
	songs, err := h.client.RedHeartSongs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if start < 0 || start > len(songs) {
		start = 0
	}
	end := start + limit
	if limit <= 0 || end > len(songs) {
		end = len(songs)
	}

	c.JSON(http.StatusOK, gin.H{"data": songs[start:end]})
}

// PersonalFM handles GET /personalFM
func (h *MusicHandler) PersonalFM(c *gin.Context) {
	songs, err := h.client.PersonalFM(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": songs})
}

func (h *MusicHandler) songID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid song id"})
		return 0, false
	}
	return id, true
}

// respondError maps the failure taxonomy onto HTTP status codes.
func (h *MusicHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTransient):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Upstream request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
