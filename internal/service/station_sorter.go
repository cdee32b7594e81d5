package service

import (
	"cmp"
	"math"
	"slices"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
)

// StationSorter orders station lists deterministically.
type StationSorter struct {
	logger zerolog.Logger
}

func NewStationSorter(logger zerolog.Logger) *StationSorter {
	return &StationSorter{logger: logging.Component(logger, "sorter")}
}

// Sort reorders stations in place. Both modes are stable.
func (s *StationSorter) Sort(stations []models.Station, mode models.SortMode) error {
	s.logger.Info().Str("mode", string(mode)).Int("stations", len(stations)).Msg("sorting stations")

	switch mode {
	case models.SortByID:
		slices.SortStableFunc(stations, func(a, b models.Station) int {
			return cmp.Compare(a.ID, b.ID)
		})
	case models.SortByCoordinates:
		slices.SortStableFunc(stations, func(a, b models.Station) int {
			if c := cmp.Compare(NormalizedLongitude(a.Lon), NormalizedLongitude(b.Lon)); c != 0 {
				return c
			}
			return cmp.Compare(a.Lat, b.Lat)
		})
	default:
		return apperr.New(apperr.Precondition, "sorter", "unknown sort mode %q", mode)
	}
	return nil
}

// NormalizedLongitude shifts lon into [0, 360) so that the antimeridian,
// not the prime meridian, is where the sweep order wraps.
func NormalizedLongitude(lon float64) float64 {
	n := math.Mod(lon+180, 360)
	if n < 0 {
		n += 360
	}
	return n
}
