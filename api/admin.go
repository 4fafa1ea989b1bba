package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProjectionMaintenanceRequest selects a projector for reset or replay.
// An empty projector targets all of them.
type ProjectionMaintenanceRequest struct {
	Projector string `json:"projector"`
}

// projectionStatus reports event count and per-projector progress
func (s *Server) projectionStatus(c *gin.Context) {
	status, err := s.runner.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// resetProjections clears one or all projection read models
func (s *Server) resetProjections(c *gin.Context) {
	var req ProjectionMaintenanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.runner.Reset(c.Request.Context(), req.Projector); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "projections reset"})
}

// replayProjections rebuilds one or all read models from the event log
func (s *Server) replayProjections(c *gin.Context) {
	var req ProjectionMaintenanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.runner.Replay(c.Request.Context(), req.Projector); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "projections replayed"})
}
