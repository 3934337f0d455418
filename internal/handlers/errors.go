package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/drishan/rides-insights/internal/apperrors"
)

// respondError maps the shared error kinds onto HTTP statuses. Queries
// never silently return partial results; every failure reaches the
// dashboard as an error payload.
func respondError(c *gin.Context, err error) {
	var formatErr *apperrors.FormatError
	var queryErr *apperrors.QueryError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrReadOnly):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.As(err, &formatErr):
		c.JSON(422, gin.H{"error": err.Error()})
	case errors.As(err, &queryErr):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "internal error"})
	}
}
