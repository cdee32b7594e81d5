package service

import (
	"context"
	"fmt"

	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
)

// PublishService copies a finished station list into the database
type PublishService struct {
	logger zerolog.Logger
	repo   StationPublisher
}

// StationPublisher interface for dependency injection
type StationPublisher interface {
	ReplaceStations(ctx context.Context, caster string, stations []models.Station) (int64, error)
}

// NewPublishService creates a new publish service
func NewPublishService(logger zerolog.Logger, repo StationPublisher) *PublishService {
	return &PublishService{logger: logging.Component(logger, "publisher"), repo: repo}
}

// Publish replaces the published stations of every caster present in list.
// Casters are published in order of first appearance.
func (s *PublishService) Publish(ctx context.Context, list *models.StationList) error {
	if list == nil {
		return fmt.Errorf("service: station list cannot be nil")
	}

	var casters []string
	byCaster := make(map[string][]models.Station)
	for _, st := range list.Stations {
		if _, ok := byCaster[st.Caster]; !ok {
			casters = append(casters, st.Caster)
		}
		byCaster[st.Caster] = append(byCaster[st.Caster], st)
	}

	for _, caster := range casters {
		n, err := s.repo.ReplaceStations(ctx, caster, byCaster[caster])
		if err != nil {
			return fmt.Errorf("service: failed to publish %s: %w", caster, err)
		}
		s.logger.Info().Str("caster", caster).Int64("stations", n).Msg("published stations")
	}

	return nil
}
