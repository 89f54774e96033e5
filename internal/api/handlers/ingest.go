package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/neurovision/internal/api/ws"
	"github.com/your-org/neurovision/internal/ingest"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/pkg/dto"
)

type IngestHandler struct {
	pipeline *ingest.Pipeline
	hub      *ws.Hub
}

func NewIngestHandler(pipeline *ingest.Pipeline, hub *ws.Hub) *IngestHandler {
	return &IngestHandler{pipeline: pipeline, hub: hub}
}

// Metrics ingests one frame's worth of externally computed metric values.
// Non-numeric values in the mapping are dropped; a non-object body is a
// client error.
func (h *IngestHandler) Metrics(c *gin.Context) {
	id := c.Param("id")

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metrics body must be a JSON object"})
		return
	}

	metrics := make(map[string]float64, len(body))
	for k, v := range body {
		if f, ok := v.(float64); ok {
			metrics[k] = f
		}
	}

	sample, err := h.pipeline.Metrics(c.Request.Context(), id, metrics, c.ClientIP())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastEvent(&dto.WSEvent{Type: "metrics", SessionID: id, Data: sample})
	}

	c.JSON(http.StatusOK, dto.IngestAck{
		Status:    "ok",
		SessionID: id,
		Timestamp: sample.Timestamp.Format(time.RFC3339),
	})
}

// Detect ingests one frame as either a multipart image upload, a base64
// data-URL, or pre-extracted landmarks, and returns the full detection
// result rather than a bare acknowledgement.
func (h *IngestHandler) Detect(c *gin.Context) {
	id := c.Param("id")

	in, ok := h.detectionInput(c)
	if !ok {
		return
	}
	in.Source = c.ClientIP()

	result, err := h.pipeline.Detection(c.Request.Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, ingest.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ingest.ErrDetectorUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	if h.hub != nil {
		h.hub.BroadcastEvent(&dto.WSEvent{Type: "detection", SessionID: id, Data: result})
	}

	c.JSON(http.StatusOK, result)
}

// detectionInput decodes the three accepted payload shapes. On a malformed
// payload it writes the client error itself and reports !ok.
func (h *IngestHandler) detectionInput(c *gin.Context) (ingest.DetectionInput, bool) {
	var in ingest.DetectionInput

	if file, err := c.FormFile("image"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
			return in, false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil || len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
			return in, false
		}
		in.Image = data
		return in, true
	}

	var req dto.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image provided"})
		return in, false
	}

	if len(req.Landmarks) > 0 {
		in.Landmarks = req.Landmarks
		in.Width = req.Width
		in.Height = req.Height
		return in, true
	}

	dataURL := req.DataURL
	if dataURL == "" {
		dataURL = req.DataURLLegacy
	}
	if dataURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image provided"})
		return in, false
	}

	// Strip the data-URL header if present.
	b64 := dataURL
	if idx := strings.Index(dataURL, ","); idx >= 0 {
		b64 = dataURL[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "undecodable image data"})
		return in, false
	}
	in.Image = data
	return in, true
}
