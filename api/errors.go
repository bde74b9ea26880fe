package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/velmon/busline/internal/domain"
)

// respondError maps the domain error taxonomy onto HTTP statuses so a
// client can tell "seat taken" (409) from "seat doesn't exist" (404)
// from "bad request" (400).
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
