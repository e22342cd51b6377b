package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/api/handlers"
	"github.com/yourusername/ncm-fetch-go/api/middleware"
	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	client *infrastructure.NeteaseClient,
	resolver *app.QualityResolver,
	coordinator *app.DownloadCoordinator,
	repo domain.CatalogRepository,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(repo)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	musicHandler := handlers.NewMusicHandler(client, resolver, log)

	// Kept at the root for compatibility with existing consumers.
	router.GET("/personalFM", musicHandler.PersonalFM)
	router.GET("/redHeart", musicHandler.RedHeart)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", musicHandler.Search)
		v1.GET("/new", musicHandler.NewSongs)
		v1.GET("/recommend", musicHandler.Recommend)
		v1.GET("/toplist", musicHandler.Toplist)
		v1.GET("/artists/:id/songs", musicHandler.ArtistSongs)

		songs := v1.Group("/songs")
		{
			songs.GET("/:id", musicHandler.GetSong)
			songs.GET("/:id/url", musicHandler.GetSongURL)
			songs.GET("/:id/lyric", musicHandler.GetLyric)
		}

		downloadHandler := handlers.NewDownloadHandler(coordinator, repo, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownloads)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}
	}

	return router
}
