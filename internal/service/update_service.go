package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
)

// State is a step of the update pipeline.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateFiltering
	StateMerging
	StateSorting
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	return [...]string{"idle", "fetching", "filtering", "merging", "sorting", "persisting", "done", "failed"}[s]
}

// SourceTableFetcher retrieves a caster's source table into its cache file.
type SourceTableFetcher interface {
	Fetch(ctx context.Context, cc models.CasterConfig) ([]byte, error)
}

// StationListStore owns the output file.
type StationListStore interface {
	Exists() (bool, error)
	Load() (*models.StationList, error)
	Save(list *models.StationList) error
}

// BoundaryLoader opens the region file of a region policy.
type BoundaryLoader func(path string) (RegionQuerier, error)

// UpdateRequest describes one run of the pipeline.
type UpdateRequest struct {
	Caster    models.CasterConfig
	Fetch     bool
	Overwrite bool
	Append    bool
	Policy    models.InclusionPolicy
	Sort      models.SortMode
}

// UpdateService sequences fetch, filter, merge, sort and persist.
type UpdateService struct {
	base         zerolog.Logger
	logger       zerolog.Logger
	fetcher      SourceTableFetcher
	store        StationListStore
	loadBoundary BoundaryLoader
	now          func() time.Time

	state State
}

// NewUpdateService wires the pipeline. now may be nil to use time.Now.
func NewUpdateService(logger zerolog.Logger, fetcher SourceTableFetcher, store StationListStore, loadBoundary BoundaryLoader, now func() time.Time) *UpdateService {
	if now == nil {
		now = time.Now
	}
	return &UpdateService{
		base:         logger,
		logger:       logging.Component(logger, "updater"),
		fetcher:      fetcher,
		store:        store,
		loadBoundary: loadBoundary,
		now:          now,
	}
}

// State returns the state the last run ended in.
func (s *UpdateService) State() State {
	return s.state
}

func (s *UpdateService) enter(state State) {
	s.logger.Debug().Str("from", s.state.String()).Str("to", state.String()).Msg("state transition")
	s.state = state
}

// Run executes the pipeline. On error nothing has been written to the
// output file.
func (s *UpdateService) Run(ctx context.Context, req UpdateRequest) (*models.StationList, error) {
	s.state = StateIdle

	list, err := s.run(ctx, req)
	if err != nil {
		s.enter(StateFailed)
		return nil, err
	}

	s.enter(StateDone)
	return list, nil
}

func (s *UpdateService) run(ctx context.Context, req UpdateRequest) (*models.StationList, error) {
	if err := s.checkPreconditions(req); err != nil {
		return nil, err
	}

	if req.Fetch {
		s.enter(StateFetching)
		if _, err := s.fetcher.Fetch(ctx, req.Caster); err != nil {
			return nil, err
		}
	}

	s.enter(StateFiltering)
	stations, err := s.filter(req)
	if err != nil {
		return nil, err
	}

	if req.Append {
		exists, err := s.store.Exists()
		if err != nil {
			return nil, err
		}
		if exists {
			s.enter(StateMerging)
			existing, err := s.store.Load()
			if err != nil {
				return nil, err
			}
			s.logger.Info().Int("existing", len(existing.Stations)).Int("new", len(stations)).Msg("appending to existing list")
			stations = append(existing.Stations, stations...)
		}
	}

	s.enter(StateSorting)
	if err := NewStationSorter(s.base).Sort(stations, req.Sort); err != nil {
		return nil, err
	}

	list := &models.StationList{
		Stations:  stations,
		Timestamp: s.now().Format(time.RFC3339),
	}

	s.enter(StatePersisting)
	s.logger.Info().Int("stations", len(list.Stations)).Msg("saving station list")
	if err := s.store.Save(list); err != nil {
		return nil, err
	}

	return list, nil
}

func (s *UpdateService) checkPreconditions(req UpdateRequest) error {
	cacheExists, err := fileExists(req.Caster.CacheFile)
	if err != nil {
		return err
	}

	if !req.Fetch {
		if !cacheExists {
			return apperr.New(apperr.Precondition, "updater", "cache file %s does not exist, the source table needs to be fetched", req.Caster.CacheFile)
		}
		return nil
	}

	if cacheExists && !req.Overwrite {
		return apperr.New(apperr.Precondition, "updater", "cache file %s already exists, overwrite it explicitly", req.Caster.CacheFile)
	}
	if missing := req.Caster.MissingFetchFields(); len(missing) > 0 {
		return apperr.New(apperr.Precondition, "updater", "caster %s is missing %s", req.Caster.Name, strings.Join(missing, ", "))
	}
	return nil
}

func (s *UpdateService) filter(req UpdateRequest) ([]models.Station, error) {
	var region RegionQuerier
	if req.Policy.Kind == models.PolicyRegion {
		var err error
		if region, err = s.loadBoundary(req.Policy.RegionFile); err != nil {
			return nil, err
		}
	}

	return NewStationFilter(s.base, region).FilterFile(req.Caster.CacheFile, req.Policy, req.Caster.Name)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.Storage, "updater", err, "cannot stat %s", path)
}
