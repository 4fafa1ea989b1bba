package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/florahub/services/plants/repositories"
)

// SubmitCreationRequestBody is the request body for a new-plant request
type SubmitCreationRequestBody struct {
	ProposedData map[string]string `json:"proposed_data" binding:"required"`
	Reason       string            `json:"reason" binding:"required"`
	RequestedBy  string            `json:"requested_by" binding:"required"`
}

// SubmitUpdateRequestBody is the request body for a plant change request
type SubmitUpdateRequestBody struct {
	ProposedChanges map[string]string `json:"proposed_changes" binding:"required"`
	Reason          string            `json:"reason" binding:"required"`
	RequestedBy     string            `json:"requested_by" binding:"required"`
}

// ReviewRequestBody is the request body for approve and reject
type ReviewRequestBody struct {
	Comment    *string `json:"comment"`
	ReviewedBy string  `json:"reviewed_by"`
}

// submitCreationRequest submits a community request for a new plant
func (s *Server) submitCreationRequest(c *gin.Context) {
	var body SubmitCreationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggregate, err := s.requestHandler.SubmitPlantCreationRequest(c.Request.Context(), body.ProposedData, body.Reason, body.RequestedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"uuid":     aggregate.GetID(),
		"plant_id": aggregate.State.PlantID,
		"status":   aggregate.State.Status,
	})
}

// submitUpdateRequest submits a community request to change a plant
func (s *Server) submitUpdateRequest(c *gin.Context) {
	var body SubmitUpdateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggregate, err := s.requestHandler.SubmitPlantUpdateRequest(c.Request.Context(), c.Param("id"), body.ProposedChanges, body.Reason, body.RequestedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"uuid":     aggregate.GetID(),
		"plant_id": aggregate.State.PlantID,
		"status":   aggregate.State.Status,
	})
}

// listRequests returns the moderation queue, optionally filtered
func (s *Server) listRequests(c *gin.Context) {
	filters := repositories.RequestFilters{
		Status:      c.Query("status"),
		RequestType: c.Query("type"),
		RequestedBy: c.Query("requested_by"),
	}

	entries, err := s.requestRepo.List(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": entries, "count": len(entries)})
}

// listPlantRequests returns all requests targeting one plant
func (s *Server) listPlantRequests(c *gin.Context) {
	entries, err := s.requestRepo.ListForPlant(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": entries, "count": len(entries)})
}

// getRequest returns one moderation queue entry
func (s *Server) getRequest(c *gin.Context) {
	entry, err := s.requestRepo.GetByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// approveRequest approves a pending request
func (s *Server) approveRequest(c *gin.Context) {
	var body ReviewRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	aggregate, err := s.requestHandler.ApproveRequest(c.Request.Context(), c.Param("id"), body.Comment, body.ReviewedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":   aggregate.GetID(),
		"status": aggregate.State.Status,
	})
}

// rejectRequest rejects a pending request; the comment is mandatory
func (s *Server) rejectRequest(c *gin.Context) {
	var body ReviewRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := ""
	if body.Comment != nil {
		comment = *body.Comment
	}

	aggregate, err := s.requestHandler.RejectRequest(c.Request.Context(), c.Param("id"), comment, body.ReviewedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":   aggregate.GetID(),
		"status": aggregate.State.Status,
	})
}
