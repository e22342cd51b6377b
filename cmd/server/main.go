package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/api"
	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
	"github.com/yourusername/ncm-fetch-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// A local .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting ncm-fetch server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("quality", config.Download.Quality),
		zap.Int("concurrent_limit", config.Download.ConcurrentLimit))

	// Initialize repository
	repo, err := infrastructure.NewSQLiteCatalogRepository(config.Catalog.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize catalog", zap.Error(err))
	}
	defer repo.Close()

	// Initialize file store
	store, err := infrastructure.NewLocalFileStore(config.Download.Dir)
	if err != nil {
		log.Fatal("Failed to initialize file store", zap.Error(err))
	}

	// Upstream clients
	transport := infrastructure.NewTransport(&config.Netease, log)
	client := infrastructure.NewNeteaseClient(transport, log)
	streamer := infrastructure.NewAudioStreamer(config.Download.StreamTimeout)

	var mirror *infrastructure.MirrorClient
	resolver := app.NewQualityResolver(client, nil, log)
	if config.Mirror.Enabled {
		mirror = infrastructure.NewMirrorClient(&config.Mirror, log)
		resolver = app.NewQualityResolver(client, mirror, log)
		log.Info("Mirror fallback enabled", zap.String("base_url", config.Mirror.BaseURL))
	}

	coordinator := app.NewDownloadCoordinator(repo, resolver, streamer, store, &config.Download, log)

	// Repair the catalog before any worker can exist.
	report, err := coordinator.Reconcile()
	if err != nil {
		log.Fatal("Startup reconciliation failed", zap.Error(err))
	}
	log.Info("Startup reconciliation done",
		zap.Int64("reset_stale", report.ResetStale),
		zap.Int("discovered", report.Discovered))

	// Setup HTTP router
	router := api.SetupRouter(client, resolver, coordinator, repo, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight downloads commit or reset before the catalog closes.
	done := make(chan struct{})
	go func() {
		coordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for in-flight downloads; records will be repaired at next startup")
	}

	log.Info("Server stopped")
}
