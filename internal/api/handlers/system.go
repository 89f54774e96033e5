package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/neurovision/internal/storage"
)

type SystemHandler struct {
	durable  storage.DurableStore
	minio    *storage.MinIOStore
	required bool
}

func NewSystemHandler(durable storage.DurableStore, minio *storage.MinIOStore, required bool) *SystemHandler {
	return &SystemHandler{durable: durable, minio: minio, required: required}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports durable-store reachability. The service only turns unready
// when the durable store is both required and unreachable; snapshot storage
// is never fatal.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	reachable := false

	if h.durable != nil {
		if err := h.durable.Ping(ctx); err != nil {
			checks["mongo"] = err.Error()
		} else {
			checks["mongo"] = "ok"
			reachable = true
		}
	} else {
		checks["mongo"] = "not configured"
	}

	if h.minio != nil {
		if err := h.minio.Ping(ctx); err != nil {
			checks["minio"] = err.Error()
		} else {
			checks["minio"] = "ok"
		}
	}

	healthy := reachable || !h.required

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":                  map[bool]string{true: "ready", false: "not ready"}[healthy],
		"durable_store_reachable": reachable,
		"durable_store_required":  h.required,
		"checks":                  checks,
	})
}
