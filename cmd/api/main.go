package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/neurovision/internal/api"
	"github.com/your-org/neurovision/internal/api/ws"
	"github.com/your-org/neurovision/internal/config"
	"github.com/your-org/neurovision/internal/enrich"
	"github.com/your-org/neurovision/internal/ingest"
	"github.com/your-org/neurovision/internal/observability"
	"github.com/your-org/neurovision/internal/report"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/internal/storage"
	"github.com/your-org/neurovision/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting neurovision API service", "port", cfg.Server.Port)

	// Connect to Mongo (the best-effort durable mirror). Only fatal when the
	// deployment marks it required.
	var durable storage.DurableStore
	if cfg.Mongo.URI != "" {
		mongoStore, err := storage.NewMongoStore(cfg.Mongo)
		if err != nil {
			if cfg.Mongo.Required {
				slog.Error("connect to mongo", "error", err)
				os.Exit(1)
			}
			slog.Warn("mongo unavailable, running without durable store", "error", err)
		} else {
			durable = mongoStore
			defer mongoStore.Close(context.Background())
			slog.Info("durable store connected", "database", cfg.Mongo.Database)
		}
	} else {
		slog.Warn("no mongo URI configured, sessions are volatile only")
	}

	// Connect to MinIO (optional frame-snapshot store)
	var minioStore *storage.MinIOStore
	if cfg.MinIO.Enabled() {
		minioStore, err = storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Warn("minio unavailable, snapshots disabled", "error", err)
			minioStore = nil
		} else if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	}

	// External landmark detector (optional; clients may submit landmarks)
	var detector vision.Detector
	if cfg.Vision.DetectorURL != "" {
		detector = vision.NewHTTPDetector(cfg.Vision)
		slog.Info("external detector configured", "url", cfg.Vision.DetectorURL)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	sessions := session.NewStore(durable)
	pipeline := ingest.NewPipeline(sessions, durable, detector, minioStore)

	enricher := enrich.NewRunner(enrich.Chain(cfg.Enrichment))
	if enricher.Configured() {
		slog.Info("report enrichment configured", "model", cfg.Enrichment.Model)
	}
	synthesizer := report.NewSynthesizer(durable, enricher)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:        cfg.Server.APIKey,
		Sessions:      sessions,
		Pipeline:      pipeline,
		Synthesizer:   synthesizer,
		Durable:       durable,
		MinIO:         minioStore,
		Hub:           hub,
		MongoRequired: cfg.Mongo.Required,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
