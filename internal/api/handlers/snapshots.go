package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/neurovision/internal/storage"
)

// SnapshotHandler serves stored detection frames back by object key. A
// dangling key (upload never landed) reads as not found.
type SnapshotHandler struct {
	store *storage.MinIOStore
}

func NewSnapshotHandler(store *storage.MinIOStore) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

func (h *SnapshotHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing snapshot key"})
		return
	}

	data, err := h.store.GetSnapshot(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}
