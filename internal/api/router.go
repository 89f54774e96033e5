package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/neurovision/internal/api/handlers"
	"github.com/your-org/neurovision/internal/api/ws"
	"github.com/your-org/neurovision/internal/auth"
	"github.com/your-org/neurovision/internal/ingest"
	"github.com/your-org/neurovision/internal/report"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/internal/storage"
)

type RouterConfig struct {
	APIKey        string
	Sessions      *session.Store
	Pipeline      *ingest.Pipeline
	Synthesizer   *report.Synthesizer
	Durable       storage.DurableStore
	MinIO         *storage.MinIOStore
	Hub           *ws.Hub
	MongoRequired bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Durable, cfg.MinIO, cfg.MongoRequired)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Sessions
	sessionH := handlers.NewSessionHandler(cfg.Sessions)
	v1.POST("/sessions", sessionH.Start)
	v1.GET("/sessions/:id", sessionH.Get)
	v1.POST("/sessions/:id/end", sessionH.End)

	// Ingest
	ingestH := handlers.NewIngestHandler(cfg.Pipeline, cfg.Hub)
	v1.POST("/sessions/:id/metrics", ingestH.Metrics)
	v1.POST("/sessions/:id/detect", ingestH.Detect)

	// Reports
	reportH := handlers.NewReportHandler(cfg.Synthesizer)
	v1.GET("/sessions/:id/report", reportH.Get)

	// Frame snapshots (only when the snapshot store is configured)
	if cfg.MinIO != nil {
		snapshotH := handlers.NewSnapshotHandler(cfg.MinIO)
		v1.GET("/snapshots/*key", snapshotH.Get)
	}

	return r
}
