package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"basestation-mapper/internal/models"
	"basestation-mapper/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultRadiusKm = 20

// NearbyHandler handles nearby station requests
type NearbyHandler struct {
	service NearbyService
}

// NearbyService interface for dependency injection
type NearbyService interface {
	Nearby(context.Context, float64, float64, float64) ([]models.Station, error)
}

// NewNearbyHandler creates a new nearby handler
func NewNearbyHandler(svc NearbyService) *NearbyHandler {
	return &NearbyHandler{service: svc}
}

// Nearby handles GET /api/nearby requests
func (h *NearbyHandler) Nearby(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'lat' and 'lon'"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
		return
	}

	radius := float64(defaultRadiusKm)
	if s := c.Query("radius"); s != "" {
		if radius, err = strconv.ParseFloat(s, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius format"})
			return
		}
	}

	stations, err := h.service.Nearby(c.Request.Context(), lat, lon, radius)
	if errors.Is(err, service.ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, stations)
}
