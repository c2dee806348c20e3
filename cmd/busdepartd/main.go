package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"bus-departures-backend/config"
	"bus-departures-backend/internal/api"
	"bus-departures-backend/internal/db"
	"bus-departures-backend/internal/departures"
	"bus-departures-backend/internal/extract"
	"bus-departures-backend/internal/feed"
	"bus-departures-backend/internal/metrics"
	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/night"
	"bus-departures-backend/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Local .env files carry the upstream URL and station id in development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("could not load .env file")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	if cfg.Feed.URL == "" {
		logger.Fatal().Msg("feed.url (or BLABLABUS_URL) must be configured")
	}

	// Initialize the snapshot database.
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	blobs := store.NewGormStore(gormDB)
	logger.Info().Msg("snapshot store initialized")

	collector := metrics.NewCollector()

	station := model.Station{
		ID:       cfg.Station.ID,
		Name:     cfg.Station.Name,
		Timezone: "Europe/Paris",
	}
	brand := model.Brand{ID: cfg.Station.BrandID, Name: cfg.Station.BrandName}
	matcher := extract.NewStopMatcher(cfg.Station.MatchSubstrings)

	fetcher := feed.NewFetcher(cfg.Feed.URL, cfg.Feed.Timeout, logger, collector)
	extractor := extract.NewExtractor(matcher, brand, logger)
	nightSvc := night.NewService(fetcher, blobs, matcher, logger, collector)
	departuresSvc := departures.NewService(fetcher, nightSvc, extractor, departures.NewCache(), station, logger, collector)

	// Create a context that can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Night.SchedulerEnabled {
		scheduler := night.NewScheduler(nightSvc, cfg.Night.CheckInterval, logger)
		go scheduler.Run(ctx)
	} else {
		logger.Info().Msg("night scheduler disabled; snapshot jobs must be invoked via the API")
	}

	handler := api.NewHandler(departuresSvc, nightSvc, logger)
	router := api.NewRouter(handler, collector, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine.
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	// Setup signal handling for graceful shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown")
	}

	logger.Info().Msg("server gracefully stopped")
}
