package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1StationsWithData returns stations with validated days
// GET /api/v1/stations/with-data
func (s *Server) handleV1StationsWithData(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stations, err := s.deps.Stations.StationsWithData(ctx)
	if err != nil {
		s.log.Error("list stations failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stations could not be loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{
			"count": len(stations),
		},
	})
}
