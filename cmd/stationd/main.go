package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/clientraw"
	"github.com/afroash/wx-monitor/internal/config"
	"github.com/afroash/wx-monitor/internal/engine"
	"github.com/afroash/wx-monitor/internal/ingest"
	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/storage"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "configs/stationd.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	}
	if cfg.Logging.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", version).
		Str("station", cfg.Station.Name).
		Int("port", cfg.Server.Port).
		Msg("Starting weather station aggregator")

	// Setup database
	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := storage.NewArchiveStore(cfg.Database.Path, logger)
	if err != nil {
		log.Fatalf("Failed to create archive store: %v", err)
	}

	cleaner := storage.NewRetentionCleaner(store, storage.RetentionCleanerConfig{
		RetentionDays: cfg.Database.RetentionDays,
		CleanupPeriod: cfg.Database.CleanupPeriod,
	}, logger)
	logger.Info().Int("retention_days", cfg.Database.RetentionDays).Dur("cleanup_period", cfg.Database.CleanupPeriod).Msg("RetentionCleaner started")

	eng, err := engine.New(engine.Config{
		Station: clientraw.StationParams{
			Name:      cfg.Station.Name,
			Latitude:  cfg.Station.Latitude,
			Longitude: cfg.Station.Longitude,
			AltitudeM: cfg.Station.Altitude,
		},
		Location:       cfg.Location(),
		ClientrawPath:  cfg.Clientraw.Path,
		MinInterval:    cfg.Clientraw.MinInterval,
		MaxCacheAge:    cfg.Clientraw.MaxCacheAge,
		AvgSpeedPeriod: cfg.Clientraw.AvgSpeedPeriod,
		GustPeriod:     cfg.Clientraw.GustPeriod,
		FixedResetHour: cfg.Clientraw.FixedResetHour,
	}, store, logger)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	stationInfo := models.NewStationInfo(
		cfg.Station.Name,
		cfg.Station.Latitude,
		cfg.Station.Longitude,
		cfg.Station.Altitude,
		cfg.Station.Type,
	)

	handler := ingest.NewHandler(
		cfg.Server.AuthToken,
		eng,
		logger,
		cfg.Server.AllowedOrigins...,
	)
	apiHandler := ingest.NewAPIHandler(eng, store, handler, stationInfo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/station-stream", handler.ServeHTTP)
	mux.HandleFunc("/api/current", apiHandler.HandleCurrent)
	mux.HandleFunc("/api/history", apiHandler.HandleHistory)
	mux.HandleFunc("/api/stats", apiHandler.HandleStats)
	mux.HandleFunc("/api/status", apiHandler.HandleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, version)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")

	// Stop accepting packets before draining the engine.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	eng.Stop()
	logger.Info().Msg("Engine stopped")

	cleaner.Stop()
	logger.Info().Msg("RetentionCleaner stopped")

	store.Close()
	logger.Info().Msg("ArchiveStore closed")

	logger.Info().Msg("Stopped")
}
