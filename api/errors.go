package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/handlers"
	"example.com/florahub/services/plants/repositories"
)

// respondError maps the error taxonomy onto HTTP statuses: rule violations
// are the caller's to fix, state conflicts are 409, a failed append is a
// retriable 503.
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, handlers.ErrNotFound),
		errors.Is(err, repositories.ErrPlantNotFound),
		errors.Is(err, repositories.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsDomainError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsStoreError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event store unavailable, retry the request"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
