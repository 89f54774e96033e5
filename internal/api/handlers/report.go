package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/neurovision/internal/report"
)

type ReportHandler struct {
	synth *report.Synthesizer
}

func NewReportHandler(synth *report.Synthesizer) *ReportHandler {
	return &ReportHandler{synth: synth}
}

func (h *ReportHandler) Get(c *gin.Context) {
	rep, err := h.synth.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rep)
}
