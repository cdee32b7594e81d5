package service

import (
	"testing"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizedLongitude(t *testing.T) {
	tests := []struct {
		lon      float64
		expected float64
	}{
		{lon: -180, expected: 0},
		{lon: -170, expected: 10},
		{lon: 0, expected: 180},
		{lon: 170, expected: 350},
		{lon: 180, expected: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizedLongitude(tt.lon), "lon %v", tt.lon)
	}
}

func TestStationSorter_Coordinates(t *testing.T) {
	stations := []models.Station{
		{ID: "EAST", Lat: 10, Lon: 170},
		{ID: "DATELINE", Lat: 10, Lon: -170},
		{ID: "MERIDIAN", Lat: 10, Lon: 0},
		{ID: "MERIDIAN_SOUTH", Lat: -5, Lon: 0},
	}

	require.NoError(t, NewStationSorter(zerolog.Nop()).Sort(stations, models.SortByCoordinates))

	var ids []string
	for _, s := range stations {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"DATELINE", "MERIDIAN_SOUTH", "MERIDIAN", "EAST"}, ids)
}

func TestStationSorter_ID(t *testing.T) {
	stations := []models.Station{
		{ID: "b", Caster: "RTK2GO"},
		{ID: "B", Caster: "RTK2GO"},
		{ID: "a", Caster: "EMLID"},
		{ID: "a", Caster: "CENTIPEDE"},
		{ID: "a", Caster: "RTK2GO"},
	}

	require.NoError(t, NewStationSorter(zerolog.Nop()).Sort(stations, models.SortByID))

	// Byte-wise order puts upper case first; equal ids keep input order.
	assert.Equal(t, []models.Station{
		{ID: "B", Caster: "RTK2GO"},
		{ID: "a", Caster: "EMLID"},
		{ID: "a", Caster: "CENTIPEDE"},
		{ID: "a", Caster: "RTK2GO"},
		{ID: "b", Caster: "RTK2GO"},
	}, stations)
}

func TestStationSorter_CoordinatesStable(t *testing.T) {
	stations := []models.Station{
		{ID: "first", Lat: 1, Lon: 1, Caster: "EMLID"},
		{ID: "second", Lat: 1, Lon: 1, Caster: "RTK2GO"},
	}

	require.NoError(t, NewStationSorter(zerolog.Nop()).Sort(stations, models.SortByCoordinates))
	assert.Equal(t, "first", stations[0].ID)
	assert.Equal(t, "second", stations[1].ID)
}

func TestStationSorter_UnknownMode(t *testing.T) {
	err := NewStationSorter(zerolog.Nop()).Sort(nil, models.SortMode("random"))
	assert.True(t, apperr.Is(err, apperr.Precondition))
}
