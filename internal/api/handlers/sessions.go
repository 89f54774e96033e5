package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/neurovision/internal/models"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/pkg/dto"
)

type SessionHandler struct {
	store *session.Store
}

func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.store.Start(c.Request.Context(), req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sessionToResponse(s))
}

func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToResponse(s))
}

func (h *SessionHandler) End(c *gin.Context) {
	s, err := h.store.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToResponse(s))
}

func sessionToResponse(s *models.Session) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID:       s.ID,
		Status:          string(s.Status),
		StartTime:       s.StartTime.Format(time.RFC3339),
		Metadata:        s.Metadata,
		FramesProcessed: s.FramesProcessed,
		LastActivity:    s.LastActivity.Format(time.RFC3339),
	}
	if s.EndTime != nil {
		et := s.EndTime.Format(time.RFC3339)
		resp.EndTime = &et
	}
	return resp
}
