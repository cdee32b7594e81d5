package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
)

const (
	endOfTable   = "ENDSOURCETABLE"
	stationTag   = "STR"
	unknownCoord = "none"

	fieldID      = 1
	fieldCountry = 8
	fieldLat     = 9
	fieldLon     = 10

	maxLineLength = 1 << 20
)

// RegionQuerier answers inclusion queries for the region policy.
type RegionQuerier interface {
	Contains(lat, lon float64) bool
	DistanceToBoundaryKm(lat, lon float64) float64
}

// StationFilter turns a cached source table into a station list.
type StationFilter struct {
	logger zerolog.Logger
	region RegionQuerier
}

// NewStationFilter creates a filter. region may be nil unless the region
// policy is used.
func NewStationFilter(logger zerolog.Logger, region RegionQuerier) *StationFilter {
	return &StationFilter{logger: logging.Component(logger, "filter"), region: region}
}

// FilterFile filters the source table cached at path.
func (f *StationFilter) FilterFile(path string, policy models.InclusionPolicy, caster string) ([]models.Station, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "filter", err, "cannot open cache file")
	}
	defer file.Close()

	f.logger.Info().Str("file", path).Str("policy", policy.Kind.String()).Msg("filtering source table")
	return f.Filter(file, policy, caster)
}

// Filter reads source table lines from r up to ENDSOURCETABLE and returns
// the stations matching policy, in source order.
func (f *StationFilter) Filter(r io.Reader, policy models.InclusionPolicy, caster string) ([]models.Station, error) {
	if policy.Kind == models.PolicyRegion && f.region == nil {
		return nil, apperr.New(apperr.Precondition, "filter", "region policy requires a region boundary")
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	stations := []models.Station{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.HasPrefix(line, endOfTable) {
			break
		}
		if !strings.HasPrefix(line, stationTag) {
			continue
		}

		station, country, ok, err := parseStation(line, caster)
		if err != nil {
			return nil, apperr.Wrap(apperr.Parse, "filter", err, "line %d", lineNo)
		}
		if !ok {
			f.logger.Debug().Int("line", lineNo).Msg("skipping station without position")
			continue
		}

		if f.include(station, country, policy) {
			stations = append(stations, station)
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, apperr.Wrap(apperr.Parse, "filter", err, "line %d exceeds %d bytes", lineNo+1, maxLineLength)
		}
		return nil, apperr.Wrap(apperr.Storage, "filter", err, "reading source table")
	}

	f.logger.Info().Int("stations", len(stations)).Msg("filtered source table")
	return stations, nil
}

func (f *StationFilter) include(s models.Station, country string, policy models.InclusionPolicy) bool {
	switch policy.Kind {
	case models.PolicyEverything:
		return true
	case models.PolicyCountry:
		return country == policy.Country
	case models.PolicyRegion:
		if f.region.Contains(s.Lat, s.Lon) {
			return true
		}
		return f.region.DistanceToBoundaryKm(s.Lat, s.Lon) <= policy.BufferKm
	default:
		return false
	}
}

// parseStation splits a STR record. ok is false for stations advertised
// without a position.
func parseStation(line, caster string) (station models.Station, country string, ok bool, err error) {
	fields := strings.Split(line, ";")
	if len(fields) <= fieldLon {
		return station, "", false, fmt.Errorf("station record has %d fields, expected at least %d", len(fields), fieldLon+1)
	}

	latStr := strings.TrimSpace(fields[fieldLat])
	lonStr := strings.TrimSpace(fields[fieldLon])
	if latStr == unknownCoord || lonStr == unknownCoord {
		return station, "", false, nil
	}

	lat, err := parseCoordinate(latStr, 90)
	if err != nil {
		return station, "", false, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseCoordinate(lonStr, 180)
	if err != nil {
		return station, "", false, fmt.Errorf("longitude: %w", err)
	}

	station = models.Station{
		ID:     strings.TrimSpace(fields[fieldID]),
		Lat:    lat,
		Lon:    lon,
		Caster: caster,
	}
	return station, strings.TrimSpace(fields[fieldCountry]), true, nil
}

func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, fmt.Errorf("%q out of range [-%g, %g]", s, limit, limit)
	}
	return v, nil
}
