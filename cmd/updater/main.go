package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"basestation-mapper/internal/config"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"
	"basestation-mapper/internal/ntrip"
	"basestation-mapper/internal/region"
	"basestation-mapper/internal/repository"
	"basestation-mapper/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	opts, err := config.ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(context.Background(), opts); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts config.Options) error {
	// The log file location comes from the config file, so the first
	// messages go to the console only.
	logger, logFile := logging.New(logging.Options{Verbosity: opts.Verbosity})
	defer func() { logFile.Close() }()
	logger.Info().Str("file", opts.ConfigFile).Msg("reading config")

	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		logger.Error().Err(err).Msg("cannot load config")
		return err
	}
	if cfg.LogFile != "" {
		logger, logFile = logging.New(logging.Options{Verbosity: opts.Verbosity, File: cfg.LogFile})
	}
	logger.Debug().Interface("options", opts).Msg("command line")

	if err := update(ctx, logger, cfg, opts); err != nil {
		logger.Error().Err(err).Str("caster", opts.Caster).Msg("station list update failed")
		return err
	}
	return nil
}

func update(ctx context.Context, logger zerolog.Logger, cfg *config.Config, opts config.Options) error {
	caster, err := cfg.Caster(opts.Caster)
	if err != nil {
		return err
	}
	policy, err := opts.Policy()
	if err != nil {
		return err
	}

	if opts.Publish && cfg.DatabaseSource == "" {
		return fmt.Errorf("publish requested but no database source is configured")
	}

	client := ntrip.NewClient(logger, opts.Timeout, opts.MaxPayload)
	store := repository.NewFileStore(opts.Output)
	loadBoundary := func(path string) (service.RegionQuerier, error) {
		return region.Load(path)
	}

	updater := service.NewUpdateService(logger, client, store, loadBoundary, nil)
	list, err := updater.Run(ctx, service.UpdateRequest{
		Caster:    caster,
		Fetch:     opts.Fetch,
		Overwrite: opts.Overwrite,
		Append:    opts.Append,
		Policy:    policy,
		Sort:      models.SortMode(opts.Sort),
	})
	if err != nil {
		return err
	}
	logger.Info().Int("stations", len(list.Stations)).Str("file", opts.Output).Msg("saved station list")

	if opts.Publish {
		return publish(ctx, logger, cfg.DatabaseSource, list)
	}
	return nil
}

func publish(ctx context.Context, logger zerolog.Logger, dbSource string, list *models.StationList) error {
	pool, err := pgxpool.New(ctx, dbSource)
	if err != nil {
		return fmt.Errorf("cannot connect to db: %w", err)
	}
	defer pool.Close()

	repo := repository.NewStationRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	return service.NewPublishService(logger, repo).Publish(ctx, list)
}
