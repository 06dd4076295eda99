package storage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
)

// ArchiveWriter handles async batched writes to the database. Archive
// records arrive at most once per archive interval, so the batches stay
// small; the writer exists to keep database latency off the engine's
// processing goroutine.
type ArchiveWriter struct {
	store       Store
	logger      zerolog.Logger
	writeChan   chan models.Sample
	batchSize   int
	flushPeriod time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	// Stats
	mu            sync.RWMutex
	totalWritten  int64
	totalBatches  int64
	totalErrors   int64
	lastWriteTime time.Time
}

// ArchiveWriterConfig holds configuration for the async writer
type ArchiveWriterConfig struct {
	BatchSize   int           // Number of records to batch before writing (default: 16)
	FlushPeriod time.Duration // Max time between flushes (default: 5s)
	ChannelSize int           // Size of the write channel buffer (default: 256)
}

// DefaultArchiveWriterConfig returns sensible defaults
func DefaultArchiveWriterConfig() ArchiveWriterConfig {
	return ArchiveWriterConfig{
		BatchSize:   16,
		FlushPeriod: 5 * time.Second,
		ChannelSize: 256,
	}
}

// ArchiveWriterStats contains statistics about the writer
type ArchiveWriterStats struct {
	TotalWritten  int64     `json:"total_written"`
	TotalBatches  int64     `json:"total_batches"`
	TotalErrors   int64     `json:"total_errors"`
	LastWriteTime time.Time `json:"last_write_time,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// NewArchiveWriter creates a new async archive writer
func NewArchiveWriter(store Store, config ArchiveWriterConfig, logger zerolog.Logger) *ArchiveWriter {
	w := &ArchiveWriter{
		store:       store,
		logger:      logger,
		writeChan:   make(chan models.Sample, config.ChannelSize),
		batchSize:   config.BatchSize,
		flushPeriod: config.FlushPeriod,
		stopChan:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writerLoop()

	logger.Info().
		Int("batch_size", config.BatchSize).
		Dur("flush_period", config.FlushPeriod).
		Int("channel_size", config.ChannelSize).
		Msg("ArchiveWriter started")

	return w
}

// Write queues a record for async writing to the database
// Returns true if queued, false if dropped (channel full)
func (w *ArchiveWriter) Write(rec models.Sample) bool {
	select {
	case w.writeChan <- rec:
		return true
	default:
		w.logger.Warn().Int64("dateTime", rec.TS).Msg("ArchiveWriter channel full, dropping record")
		return false
	}
}

// writerLoop is the background goroutine that batches and writes records
func (w *ArchiveWriter) writerLoop() {
	defer w.wg.Done()

	batch := make([]models.Sample, 0, w.batchSize)
	ticker := time.NewTicker(w.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec := <-w.writeChan:
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = make([]models.Sample, 0, w.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = make([]models.Sample, 0, w.batchSize)
			}

		case <-w.stopChan:
			// Drain remaining records from channel
			draining := true
			for draining {
				select {
				case rec := <-w.writeChan:
					batch = append(batch, rec)
				default:
					draining = false
				}
			}
			// Flush any remaining
			if len(batch) > 0 {
				w.flush(batch)
			}
			w.logger.Info().Msg("ArchiveWriter stopped")
			return
		}
	}
}

// flush writes a batch to the database
func (w *ArchiveWriter) flush(batch []models.Sample) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(batch)

	w.mu.Lock()
	if err != nil {
		w.totalErrors++
		w.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to write batch")
	} else {
		w.totalWritten += int64(len(batch))
		w.totalBatches++
		w.lastWriteTime = time.Now()
		w.logger.Debug().Int("count", len(batch)).Msg("Flushed batch")
	}
	w.mu.Unlock()
}

// Stop gracefully stops the writer, flushing any remaining data
func (w *ArchiveWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
	})
}

// Stats returns current writer statistics
func (w *ArchiveWriter) Stats() ArchiveWriterStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return ArchiveWriterStats{
		TotalWritten:  w.totalWritten,
		TotalBatches:  w.totalBatches,
		TotalErrors:   w.totalErrors,
		LastWriteTime: w.lastWriteTime,
		QueueLength:   len(w.writeChan),
	}
}
