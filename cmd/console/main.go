package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/config"
	"github.com/afroash/wx-monitor/internal/console"
	"github.com/afroash/wx-monitor/internal/models"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "configs/console.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
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
		Str("server", cfg.Server.URL).
		Msg("Starting station feeder")

	stationInfo := models.NewStationInfo(
		cfg.Station.Name,
		cfg.Station.Latitude,
		cfg.Station.Longitude,
		cfg.Station.Altitude,
		cfg.Station.Type,
	)

	// The simulator is the only console source for now. A hardware driver
	// slots in behind the same Source interface.
	reader := console.NewReader(console.NewSimulatedStation(), cfg.Station.ReadInterval, logger)
	defer reader.Close()

	buffer := console.NewSampleBuffer(cfg.Buffer.Size, cfg.Buffer.DropOldest)

	conn := console.NewConnection(console.ConnectionConfig{
		URL:                  cfg.Server.URL,
		AuthToken:            cfg.Server.AuthToken,
		ReconnectInterval:    cfg.Server.ReconnectInterval,
		MaxReconnectInterval: cfg.Server.MaxReconnectInterval,
		PingInterval:         cfg.Server.PingInterval,
		PongTimeout:          cfg.Server.PongTimeout,
	}, stationInfo, buffer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := conn.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Connection manager exited")
		}
	}()

	go func() {
		if err := reader.Start(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Reader exited")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case pkt := <-reader.Packets():
			deliver(conn, buffer, pkt, logger)
		case <-sigChan:
			logger.Info().Msg("Shutting down...")
			cancel()
			conn.Close()
			logger.Info().Int("buffered", buffer.Size()).Msg("Stopped")
			return
		}
	}
}

// deliver sends a packet, buffering it when the server is unreachable and
// draining the backlog once the connection is back.
func deliver(conn *console.Connection, buffer *console.SampleBuffer, pkt models.Sample, logger zerolog.Logger) {
	if !conn.IsConnected() {
		buffer.Push(pkt)
		logger.Debug().Int("buffered", buffer.Size()).Msg("Server unreachable, packet buffered")
		return
	}

	if !buffer.IsEmpty() {
		if err := conn.Flush(50); err != nil {
			logger.Warn().Err(err).Msg("Backlog flush interrupted")
		}
	}

	if err := conn.Send(pkt); err != nil {
		buffer.Push(pkt)
		logger.Warn().Err(err).Msg("Send failed, packet buffered")
	}
}
