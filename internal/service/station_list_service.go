package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"basestation-mapper/internal/models"
)

// ErrUnknownCaster is returned for casters outside models.Casters
var ErrUnknownCaster = errors.New("unknown caster")

// StationListService serves the persisted station list to the web frontend
type StationListService struct {
	repo      StationListReader
	published PublishedStationReader
}

// StationListReader interface for dependency injection
type StationListReader interface {
	Load() (*models.StationList, error)
}

// PublishedStationReader reads the stations published to the database
type PublishedStationReader interface {
	ListStations(ctx context.Context, caster string) ([]models.Station, error)
}

// NewStationListService creates a new station list service
func NewStationListService(repo StationListReader) *StationListService {
	return &StationListService{repo: repo}
}

// WithPublished makes ListByCaster read from the published stations
// instead of the output file.
func (s *StationListService) WithPublished(published PublishedStationReader) *StationListService {
	s.published = published
	return s
}

// List returns the whole station list
func (s *StationListService) List(ctx context.Context) (*models.StationList, error) {
	list, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("service: failed to load station list: %w", err)
	}
	return list, nil
}

// ListByCaster returns only the stations advertised by caster
func (s *StationListService) ListByCaster(ctx context.Context, caster string) (*models.StationList, error) {
	if !slices.Contains(models.Casters, caster) {
		return nil, fmt.Errorf("service: %w: %s", ErrUnknownCaster, caster)
	}

	if s.published != nil {
		stations, err := s.published.ListStations(ctx, caster)
		if err != nil {
			return nil, fmt.Errorf("service: failed to list published stations: %w", err)
		}
		return &models.StationList{Stations: stations}, nil
	}

	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := &models.StationList{Stations: []models.Station{}, Timestamp: list.Timestamp}
	for _, st := range list.Stations {
		if st.Caster == caster {
			filtered.Stations = append(filtered.Stations, st)
		}
	}
	return filtered, nil
}
