package service

import (
	"context"
	"errors"
	"fmt"

	"basestation-mapper/internal/models"
)

// MaxNearbyRadiusKm caps the search radius of nearby queries
const MaxNearbyRadiusKm = 500

// ErrInvalidQuery is returned for positions or radii out of range
var ErrInvalidQuery = errors.New("invalid query")

// NearbyService finds published stations close to a position
type NearbyService struct {
	repo NearbyRepository
}

// NearbyRepository interface for dependency injection
type NearbyRepository interface {
	StationsWithin(ctx context.Context, lat, lon, radiusKm float64) ([]models.Station, error)
}

// NewNearbyService creates a new nearby service
func NewNearbyService(repo NearbyRepository) *NearbyService {
	return &NearbyService{repo: repo}
}

// Nearby returns the stations within radiusKm of the point, nearest first
func (s *NearbyService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.Station, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("service: %w: latitude %f", ErrInvalidQuery, lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("service: %w: longitude %f", ErrInvalidQuery, lon)
	}
	if radiusKm <= 0 || radiusKm > MaxNearbyRadiusKm {
		return nil, fmt.Errorf("service: %w: radius %f", ErrInvalidQuery, radiusKm)
	}

	stations, err := s.repo.StationsWithin(ctx, lat, lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("service: failed to find nearby stations: %w", err)
	}

	return stations, nil
}
