package handler

import (
	"context"
	"errors"
	"net/http"

	"basestation-mapper/internal/models"
	"basestation-mapper/internal/service"

	"github.com/gin-gonic/gin"
)

// StationsHandler serves the persisted station list
type StationsHandler struct {
	service StationListService
}

// StationListService interface for dependency injection
type StationListService interface {
	List(context.Context) (*models.StationList, error)
	ListByCaster(context.Context, string) (*models.StationList, error)
}

// NewStationsHandler creates a new stations handler
func NewStationsHandler(svc StationListService) *StationsHandler {
	return &StationsHandler{service: svc}
}

// List handles GET /api/stations requests
func (h *StationsHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "station list unavailable"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// ListByCaster handles GET /api/stations/:caster requests
func (h *StationsHandler) ListByCaster(c *gin.Context) {
	caster := c.Param("caster")

	list, err := h.service.ListByCaster(c.Request.Context(), caster)
	if errors.Is(err, service.ErrUnknownCaster) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown caster"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "station list unavailable"})
		return
	}

	c.JSON(http.StatusOK, list)
}
