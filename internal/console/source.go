package console

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
)

// Source defines the interface for reading packets from a station console
type Source interface {
	// Read performs a single reading from the console.
	// Returns a loop packet tagged with the console's unit system.
	Read() (models.Sample, error)

	// Close cleans up console resources
	Close() error
}

// Reader orchestrates periodic packet readings
type Reader struct {
	source   Source
	interval time.Duration
	logger   zerolog.Logger
	packets  chan models.Sample
}

// NewReader creates a new packet reader
func NewReader(source Source, interval time.Duration, logger zerolog.Logger) *Reader {
	return &Reader{
		source:   source,
		interval: interval,
		logger:   logger,
		packets:  make(chan models.Sample, 10),
	}
}

// Start begins periodic reading from the console
// Runs until context is cancelled
func (r *Reader) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.readAndPublish()
		}
	}
}

// ReadOnce performs a single reading (useful for testing)
func (r *Reader) ReadOnce() (models.Sample, error) {
	return r.source.Read()
}

// readAndPublish performs a read and publishes to the channel
func (r *Reader) readAndPublish() {
	pkt, err := r.ReadOnce()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read from console")
		return
	}
	select {
	case r.packets <- pkt:
		r.logger.Debug().Int64("dateTime", pkt.TS).Int("fields", len(pkt.Fields)).Msg("read packet from console")
	default:
		r.logger.Warn().Msg("packet channel full, reading dropped")
	}
}

// Packets returns the channel where packets are published
func (r *Reader) Packets() <-chan models.Sample {
	return r.packets
}

// Close stops the reader and cleans up resources
func (r *Reader) Close() error {
	return r.source.Close()
}

// SimulatedStation generates plausible weather observations with a
// bounded random walk. Stands in for console hardware during development
// and testing.
type SimulatedStation struct {
	rng *rand.Rand

	temp     float64
	humidity float64
	pressure float64
	windDir  float64
}

// NewSimulatedStation creates a simulated station seeded from the clock
func NewSimulatedStation() *SimulatedStation {
	return &SimulatedStation{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		temp:     15.0,
		humidity: 60.0,
		pressure: 1013.0,
		windDir:  225.0,
	}
}

// Read produces the next simulated loop packet in MetricWX units
func (s *SimulatedStation) Read() (models.Sample, error) {
	s.temp = clamp(s.temp+s.rng.NormFloat64()*0.2, -20.0, 45.0)
	s.humidity = clamp(s.humidity+s.rng.NormFloat64()*1.0, 10.0, 100.0)
	s.pressure = clamp(s.pressure+s.rng.NormFloat64()*0.1, 960.0, 1060.0)
	s.windDir = math.Mod(s.windDir+s.rng.NormFloat64()*10.0+360.0, 360.0)
	speed := math.Abs(s.rng.NormFloat64() * 4.0)

	pkt := models.NewSample(time.Now().Unix(), models.UnitMetricWX)
	pkt.Set(models.OutTemp, round1(s.temp))
	pkt.Set(models.OutHumidity, round1(s.humidity))
	pkt.Set(models.Barometer, round1(s.pressure))
	pkt.Set(models.WindSpeed, round1(speed))
	pkt.Set(models.WindDir, round1(s.windDir))
	if s.rng.Float64() < 0.05 {
		pkt.Set(models.Rain, 0.2)
		pkt.Set(models.RainRate, 2.4)
	}
	return pkt, nil
}

// Close is a no-op for the simulator
func (s *SimulatedStation) Close() error {
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
