package console

import (
	"fmt"
	"sync"
	"time"

	"github.com/afroash/wx-monitor/internal/models"
)

// SampleBuffer is a thread-safe circular buffer for packets awaiting
// delivery. It holds observations across server outages.
type SampleBuffer struct {
	samples    []models.Sample
	capacity   int
	dropOldest bool
	mutex      sync.RWMutex
	stats      BufferStats
}

// BufferStats tracks buffer usage statistics
type BufferStats struct {
	TotalPushed   int64
	TotalDropped  int64
	HighWaterMark int
	LastPushTime  time.Time
	LastDropTime  time.Time
}

// NewSampleBuffer creates a new sample buffer with given capacity
func NewSampleBuffer(capacity int, dropOldest bool) *SampleBuffer {
	return &SampleBuffer{
		samples:    make([]models.Sample, 0, capacity),
		capacity:   capacity,
		dropOldest: dropOldest,
		stats:      BufferStats{},
	}
}

// Push adds a packet to the buffer
// Returns true if successful, false if dropped (when full and dropOldest=false)
func (sb *SampleBuffer) Push(pkt models.Sample) bool {
	sb.mutex.Lock()
	defer sb.mutex.Unlock()

	if len(sb.samples) >= sb.capacity {
		if sb.dropOldest {
			sb.samples = sb.samples[1:]
			sb.stats.TotalDropped++
			sb.stats.LastDropTime = time.Now()
		} else {
			sb.stats.TotalDropped++
			sb.stats.LastDropTime = time.Now()
			return false
		}
	}
	sb.samples = append(sb.samples, pkt)
	sb.stats.TotalPushed++
	sb.stats.LastPushTime = time.Now()

	if len(sb.samples) > sb.stats.HighWaterMark {
		sb.stats.HighWaterMark = len(sb.samples)
	}

	return true
}

// PopBatch removes and returns up to n packets from the buffer,
// oldest first
func (sb *SampleBuffer) PopBatch(n int) []models.Sample {
	sb.mutex.Lock()
	defer sb.mutex.Unlock()

	count := min(n, len(sb.samples))
	if count == 0 {
		return nil
	}
	result := make([]models.Sample, count)
	copy(result, sb.samples[:count])
	sb.samples = sb.samples[count:]
	return result
}

// Peek returns up to n packets without removing them
func (sb *SampleBuffer) Peek(n int) []models.Sample {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()

	count := min(n, len(sb.samples))
	if count == 0 {
		return nil
	}

	result := make([]models.Sample, count)
	copy(result, sb.samples[:count])
	return result
}

// Size returns the current number of packets in the buffer
func (sb *SampleBuffer) Size() int {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()
	return len(sb.samples)
}

// IsFull returns true if buffer is at capacity
func (sb *SampleBuffer) IsFull() bool {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()
	return len(sb.samples) >= sb.capacity
}

// IsEmpty returns true if buffer has no packets
func (sb *SampleBuffer) IsEmpty() bool {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()
	return len(sb.samples) == 0
}

// Clear removes all packets from the buffer
func (sb *SampleBuffer) Clear() {
	sb.mutex.Lock()
	defer sb.mutex.Unlock()
	sb.samples = make([]models.Sample, 0)
	sb.stats.TotalPushed = 0
	sb.stats.TotalDropped = 0
	sb.stats.LastPushTime = time.Time{}
	sb.stats.LastDropTime = time.Time{}
}

// Capacity returns the maximum capacity of the buffer
func (sb *SampleBuffer) Capacity() int {
	// No lock needed, capacity doesn't change
	return sb.capacity
}

// Stats returns a copy of current buffer statistics
func (sb *SampleBuffer) Stats() BufferStats {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()
	return sb.stats
}

// String returns a human-readable representation of buffer state
func (sb *SampleBuffer) String() string {
	sb.mutex.RLock()
	defer sb.mutex.RUnlock()

	mode := "drop-newest"
	if sb.dropOldest {
		mode = "drop-oldest"
	}

	return fmt.Sprintf("Buffer[%d/%d, dropped: %d, mode: %s]",
		len(sb.samples),
		sb.capacity,
		sb.stats.TotalDropped,
		mode,
	)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
