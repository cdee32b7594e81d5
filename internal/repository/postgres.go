package repository

import (
	"context"
	"fmt"
	"time"

	"basestation-mapper/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE EXTENSION IF NOT EXISTS postgis;

	CREATE TABLE IF NOT EXISTS basestations (
		id BIGSERIAL PRIMARY KEY,
		station_id VARCHAR(255) NOT NULL,
		caster VARCHAR(64) NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		geom GEOGRAPHY(POINT, 4326) GENERATED ALWAYS AS (
			ST_SetSRID(ST_MakePoint(lon, lat), 4326)::geography
		) STORED
	);
	CREATE INDEX IF NOT EXISTS basestations_caster_idx ON basestations (caster);
	CREATE INDEX IF NOT EXISTS basestations_geom_idx ON basestations USING GIST (geom);
`

// StationRepository publishes station lists to a PostGIS table
type StationRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewStationRepository creates a new PostgreSQL repository
func NewStationRepository(db *pgxpool.Pool) *StationRepository {
	return &StationRepository{db: db, now: time.Now}
}

// EnsureSchema creates the basestations table if needed
func (r *StationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// ReplaceStations swaps the rows of one caster for the given stations in a
// single transaction
func (r *StationRepository) ReplaceStations(ctx context.Context, caster string, stations []models.Station) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM basestations WHERE caster = $1`, caster); err != nil {
		return 0, fmt.Errorf("repository: failed to delete stations of %s: %w", caster, err)
	}

	updated := r.now()
	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"basestations"},
		[]string{"station_id", "caster", "lat", "lon", "updated_at"},
		pgx.CopyFromSlice(len(stations), func(i int) ([]any, error) {
			s := stations[i]
			return []any{s.ID, caster, s.Lat, s.Lon, updated}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy stations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit: %w", err)
	}
	return n, nil
}

// ListStations returns the published stations of a caster ordered by id
func (r *StationRepository) ListStations(ctx context.Context, caster string) ([]models.Station, error) {
	sql := `
		SELECT
			station_id,
			caster,
			ST_Y(geom::geometry) AS lat,
			ST_X(geom::geometry) AS lon
		FROM basestations
		WHERE caster = $1
		ORDER BY station_id, id
	`

	rows, err := r.db.Query(ctx, sql, caster)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute list query: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Caster, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("repository: failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return stations, nil
}

// StationsWithin returns the published stations within radiusKm of a point
func (r *StationRepository) StationsWithin(ctx context.Context, lat, lon, radiusKm float64) ([]models.Station, error) {
	sql := `
		SELECT station_id, caster, lat, lon
		FROM basestations
		WHERE ST_DWithin(geom, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography
	`

	rows, err := r.db.Query(ctx, sql, lat, lon, radiusKm*1000)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute spatial query: %w", err)
	}

	stations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Station, error) {
		var s models.Station
		err := row.Scan(&s.ID, &s.Caster, &s.Lat, &s.Lon)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan stations: %w", err)
	}
	return stations, nil
}
