package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/handlers"
	"example.com/florahub/services/plants/repositories"
	"example.com/florahub/services/plants/utils"
)

// UpdatePlantRequest is the request body for a plant update
type UpdatePlantRequest struct {
	Changes   map[string]string `json:"changes" binding:"required"`
	UpdatedBy string            `json:"updated_by"`
}

// DeletePlantRequest is the optional request body for a plant delete
type DeletePlantRequest struct {
	Reason    *string `json:"reason"`
	DeletedBy string  `json:"deleted_by"`
}

// RestorePlantRequest is the optional request body for a plant restore
type RestorePlantRequest struct {
	RestoredBy string `json:"restored_by"`
}

// createPlant creates a new plant in the catalog
func (s *Server) createPlant(c *gin.Context) {
	var cmd handlers.CreatePlantCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateStruct(cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggregate, err := s.plantHandler.CreatePlant(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"uuid":  aggregate.GetID(),
		"state": aggregate.State,
	})
}

// getPlant returns a plant's current read model
func (s *Server) getPlant(c *gin.Context) {
	plant, err := s.plantRepo.GetByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plant)
}

// getPlantTimeline returns a plant's current state plus its full history
func (s *Server) getPlantTimeline(c *gin.Context) {
	result, err := s.plantRepo.GetWithTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// listPlants returns plants matching the query filters
func (s *Server) listPlants(c *gin.Context) {
	filters := repositories.PlantFilters{
		Type:           c.Query("type"),
		Category:       c.Query("category"),
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("include_deleted") == "true",
	}
	if raw, ok := c.GetQuery("community_requested"); ok {
		value := raw == "true"
		filters.CommunityRequested = &value
	}

	plants, err := s.plantRepo.List(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plants": plants, "count": len(plants)})
}

// searchPlants runs a free-text search. The search backend answers when it is
// configured; otherwise the database listing with a LIKE filter serves.
func (s *Server) searchPlants(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	if s.searcher == nil {
		plants, err := s.plantRepo.List(c.Request.Context(), repositories.PlantFilters{Search: query})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plants": plants, "count": len(plants)})
		return
	}

	uuids, err := s.searcher.SearchPlants(c.Request.Context(), query, false)
	if err != nil {
		log.Warn().Err(err).Msg("Search backend failed, falling back to database")
		plants, err := s.plantRepo.List(c.Request.Context(), repositories.PlantFilters{Search: query})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plants": plants, "count": len(plants)})
		return
	}

	plants, err := s.plantRepo.ListByUUIDs(c.Request.Context(), uuids)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plants": plants, "count": len(plants)})
}

// updatePlant applies field changes to a plant
func (s *Server) updatePlant(c *gin.Context) {
	var req UpdatePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggregate, err := s.plantHandler.UpdatePlant(c.Request.Context(), c.Param("id"), req.Changes, req.UpdatedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":  aggregate.GetID(),
		"state": aggregate.State,
	})
}

// deletePlant soft-deletes a plant
func (s *Server) deletePlant(c *gin.Context) {
	var req DeletePlantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	aggregate, err := s.plantHandler.DeletePlant(c.Request.Context(), c.Param("id"), req.Reason, req.DeletedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":  aggregate.GetID(),
		"state": aggregate.State,
	})
}

// restorePlant restores a previously deleted plant
func (s *Server) restorePlant(c *gin.Context) {
	var req RestorePlantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	aggregate, err := s.plantHandler.RestorePlant(c.Request.Context(), c.Param("id"), req.RestoredBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":  aggregate.GetID(),
		"state": aggregate.State,
	})
}
