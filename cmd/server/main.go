package main

import (
	"context"
	"os"

	"basestation-mapper/internal/config"
	"basestation-mapper/internal/handler"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/repository"
	"basestation-mapper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

func main() {
	configFile := pflag.StringP("ini_file", "i", config.DefaultConfigFile, "path to the INI file")
	verbosity := pflag.CountP("verbose", "v", "verbose output, twice for debug messages")
	pflag.Parse()

	logger, logFile := logging.New(logging.Options{Verbosity: *verbosity})

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot load config")
	}
	if cfg.LogFile != "" {
		logger, logFile = logging.New(logging.Options{Verbosity: *verbosity, File: cfg.LogFile})
	}

	// Initialize layers
	stationListService := service.NewStationListService(repository.NewFileStore(cfg.OutputFile))
	stationsHandler := handler.NewStationsHandler(stationListService)

	var nearbyHandler *handler.NearbyHandler
	if cfg.DatabaseSource != "" {
		conn, err := pgxpool.New(context.Background(), cfg.DatabaseSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to db")
		}
		defer conn.Close()

		repo := repository.NewStationRepository(conn)
		stationListService.WithPublished(repo)
		nearbyHandler = handler.NewNearbyHandler(service.NewNearbyService(repo))
	}

	if *verbosity < 2 {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handler.NewRouter(stationsHandler, nearbyHandler, cfg.WebDir)

	logger.Warn().Str("address", cfg.ServerAddress).Str("web", cfg.WebDir).Msg("serving station map")
	if err := r.Run(cfg.ServerAddress); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		logFile.Close()
		os.Exit(1)
	}
}
