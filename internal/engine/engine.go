// Package engine wires the streaming statistics core to its
// collaborators: packets come in from the ingest server, statistics and
// the snapshot cache are updated, the clientraw file is regenerated, and
// archive records are persisted. All statistics mutation happens on one
// goroutine; everything concurrent lives at the edges.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/clientraw"
	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/storage"
	"github.com/afroash/wx-monitor/internal/units"
	"github.com/afroash/wx-monitor/internal/wxstats"
)

// Config holds the engine's tunables.
type Config struct {
	Station        clientraw.StationParams
	Location       *time.Location // local time zone for day boundaries
	ClientrawPath  string         // empty disables file generation
	MinInterval    time.Duration  // minimum time between generations
	MaxCacheAge    int64          // snapshot staleness cutoff, seconds
	AvgSpeedPeriod int64          // average speed window, seconds
	GustPeriod     int64          // gust window, seconds; 0 = latest value
	FixedResetHour int            // local hour of the fixed daily reset
	QueueSize      int            // packet queue length
}

// event is one unit of work for the processing goroutine.
type event struct {
	rec     models.Sample
	archive bool
}

// Stats is a point-in-time view of engine counters.
type Stats struct {
	PacketsProcessed int64     `json:"packets_processed"`
	PacketsDropped   int64     `json:"packets_dropped"`
	ArchiveRecords   int64     `json:"archive_records"`
	Generations      int64     `json:"generations"`
	GenerationErrors int64     `json:"generation_errors"`
	LastGeneration   time.Time `json:"last_generation,omitempty"`
	QueueLength      int       `json:"queue_length"`
}

// Engine owns the statistics buffer and snapshot cache and processes
// packets and archive records in arrival order on a single goroutine.
type Engine struct {
	cfg    Config
	store  storage.Store
	writer *storage.ArchiveWriter
	gen    *clientraw.Generator
	logger zerolog.Logger

	// Owned by the processing goroutine; never touched elsewhere.
	buf          *wxstats.Buffer
	cache        *wxstats.Cache
	astats       clientraw.ArchiveStats
	curDay       int // local year*1000 + yday of the last packet
	lastFixed    int64
	lastGenerate time.Time

	events   chan event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Shared with readers.
	mu     sync.RWMutex
	latest models.Snapshot
	stats  Stats
}

// New creates and starts an engine. Startup state comes from the archive:
// the snapshot cache is primed from the last record and the buffer is
// seeded with today's statistics, so a restart keeps the day's extremes.
func New(cfg Config, store storage.Store, logger zerolog.Logger) (*Engine, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxCacheAge <= 0 {
		cfg.MaxCacheAge = 600
	}
	if cfg.AvgSpeedPeriod <= 0 {
		cfg.AvgSpeedPeriod = 600
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	now := time.Now()

	var ref models.Sample
	if store != nil {
		last, ok, err := store.LastRecord()
		if err != nil {
			return nil, fmt.Errorf("failed to load last record: %w", err)
		}
		if ok {
			conv, err := units.ConvertSample(last, models.UnitMetricWX)
			if err == nil {
				ref = conv
			} else {
				logger.Warn().Err(err).Msg("Last record not convertible, starting with empty cache")
			}
		}
	}

	var seed *wxstats.DaySummary
	if store != nil {
		start, end := dayBounds(now, cfg.Location)
		var err error
		seed, err = store.DaySummary(start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load day summary: %w", err)
		}
	}

	e := &Engine{
		cfg:    cfg,
		store:  store,
		logger: logger,
		gen: clientraw.NewGenerator(cfg.Station, cfg.Location,
			cfg.AvgSpeedPeriod, cfg.GustPeriod, logger),
		buf:       wxstats.NewBuffer(models.UnitMetricWX, seed),
		cache:     wxstats.NewCache(ref, now.Unix()),
		curDay:    dayKey(now, cfg.Location),
		lastFixed: lastFixedBoundary(now.Unix(), cfg.FixedResetHour, cfg.Location),
		events:    make(chan event, cfg.QueueSize),
		stopChan:  make(chan struct{}),
	}

	if store != nil {
		e.writer = storage.NewArchiveWriter(store, storage.DefaultArchiveWriterConfig(), logger)
		e.refreshArchiveStats(now.Unix())
	}
	e.latest = e.cache.Snapshot(now.Unix(), cfg.MaxCacheAge)

	e.wg.Add(1)
	go e.run()

	logger.Info().
		Str("clientraw_path", cfg.ClientrawPath).
		Dur("min_interval", cfg.MinInterval).
		Int64("max_cache_age", cfg.MaxCacheAge).
		Msg("Engine started")

	return e, nil
}

// Submit queues a loop packet for processing.
// Returns true if queued, false if dropped (queue full).
func (e *Engine) Submit(pkt models.Sample) bool {
	return e.submit(event{rec: pkt})
}

// SubmitArchive queues an archive record for processing.
func (e *Engine) SubmitArchive(rec models.Sample) bool {
	return e.submit(event{rec: rec, archive: true})
}

func (e *Engine) submit(ev event) bool {
	select {
	case e.events <- ev:
		return true
	default:
		e.mu.Lock()
		e.stats.PacketsDropped++
		e.mu.Unlock()
		e.logger.Warn().Int64("dateTime", ev.rec.TS).Msg("Engine queue full, dropping packet")
		return false
	}
}

// Latest returns the most recently published snapshot. Safe for
// concurrent use.
func (e *Engine) Latest() models.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Stats returns current engine counters. Safe for concurrent use.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.stats
	s.QueueLength = len(e.events)
	return s
}

// Stop drains the queue, stops the processing goroutine and flushes the
// archive writer.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.wg.Wait()
		if e.writer != nil {
			e.writer.Stop()
		}
		e.logger.Info().Msg("Engine stopped")
	})
}

// run is the processing goroutine. It is the only goroutine that touches
// the buffer, cache and archive stats.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case ev := <-e.events:
			e.process(ev)

		case <-e.stopChan:
			// Drain remaining events
			draining := true
			for draining {
				select {
				case ev := <-e.events:
					e.process(ev)
				default:
					draining = false
				}
			}
			return
		}
	}
}

func (e *Engine) process(ev event) {
	if !ev.rec.IsValid() {
		e.logger.Warn().Msg("Discarding packet without timestamp")
		return
	}
	if ev.archive {
		e.processArchive(ev.rec)
		return
	}
	e.processPacket(ev.rec)
}

// processPacket handles one loop packet: unit conversion, day and
// fixed-time rollovers, cache and buffer updates, and the throttled
// clientraw generation.
func (e *Engine) processPacket(pkt models.Sample) {
	conv, err := units.ConvertSample(pkt, models.UnitMetricWX)
	if err != nil {
		e.logger.Warn().Err(err).Int64("dateTime", pkt.TS).Msg("Discarding unconvertible packet")
		return
	}

	e.rollover(conv.TS)

	if err := e.cache.Update(conv, conv.TS); err != nil {
		e.logger.Warn().Err(err).Msg("Cache update failed")
	}
	if err := e.buf.AddSample(conv); err != nil {
		e.logger.Warn().Err(err).Int64("dateTime", conv.TS).Msg("Buffer rejected packet")
		return
	}

	e.mu.Lock()
	e.stats.PacketsProcessed++
	e.mu.Unlock()

	e.maybeGenerate(conv.TS)
}

// processArchive handles one archive record: the interval sums reset,
// the record is persisted, and the archive-derived statistics refresh.
func (e *Engine) processArchive(rec models.Sample) {
	e.buf.IntervalReset()

	if e.writer != nil {
		e.writer.Write(rec)
	}
	e.refreshArchiveStats(rec.TS)

	// The archive wind direction stands in for the day average until the
	// loop buffer has wind of its own.
	if v, ok := rec.Get(models.WindDir); ok {
		dir := v
		e.astats.WindDirAvg = &dir
	} else {
		e.astats.WindDirAvg = nil
	}

	e.mu.Lock()
	e.stats.ArchiveRecords++
	e.mu.Unlock()
}

// rollover fires the day reset when the local day changes and the
// fixed-time reset when the packet crosses the configured local hour.
func (e *Engine) rollover(ts int64) {
	local := time.Unix(ts, 0).In(e.cfg.Location)

	if key := dayKey(local, e.cfg.Location); key != e.curDay {
		e.logger.Info().Str("day", local.Format("2006-01-02")).Msg("Day rollover, resetting day statistics")
		e.buf.DayReset()
		e.curDay = key
	}

	if boundary := lastFixedBoundary(ts, e.cfg.FixedResetHour, e.cfg.Location); boundary > e.lastFixed {
		e.logger.Info().Int("hour", e.cfg.FixedResetHour).Msg("Fixed-time reset")
		e.buf.FixedTimeReset()
		e.lastFixed = boundary
	}
}

// maybeGenerate writes the clientraw file unless the minimum interval
// since the previous write has not yet elapsed.
func (e *Engine) maybeGenerate(ts int64) {
	if e.cfg.MinInterval > 0 && time.Since(e.lastGenerate) < e.cfg.MinInterval {
		return
	}

	snap := e.cache.Snapshot(ts, e.cfg.MaxCacheAge)
	content := e.gen.Build(snap, e.buf, e.astats, e.recordLookup())

	e.mu.Lock()
	e.latest = snap
	e.mu.Unlock()

	if e.cfg.ClientrawPath != "" {
		if err := clientraw.WriteFile(e.cfg.ClientrawPath, content); err != nil {
			e.mu.Lock()
			e.stats.GenerationErrors++
			e.mu.Unlock()
			e.logger.Error().Err(err).Str("path", e.cfg.ClientrawPath).Msg("Failed to write clientraw file")
			return
		}
	}

	e.lastGenerate = time.Now()
	e.mu.Lock()
	e.stats.Generations++
	e.stats.LastGeneration = e.lastGenerate
	e.mu.Unlock()
}

// recordLookup adapts the archive store to the trend calculator.
func (e *Engine) recordLookup() wxstats.RecordLookup {
	if e.store == nil {
		return func(ts, grace int64) (models.Sample, bool) {
			return models.Sample{}, false
		}
	}
	return func(ts, grace int64) (models.Sample, bool) {
		rec, ok, err := e.store.Record(ts, grace)
		if err != nil {
			e.logger.Warn().Err(err).Int64("ts", ts).Msg("Trend record lookup failed")
			return models.Sample{}, false
		}
		return rec, ok
	}
}

// refreshArchiveStats recomputes the archive-derived totals: yesterday,
// month-to-date and year-to-date rain, the last hour's gust and today's
// archive wind maximum.
func (e *Engine) refreshArchiveStats(asOf int64) {
	if e.store == nil {
		return
	}
	local := time.Unix(asOf, 0).In(e.cfg.Location)
	dayStart, _ := dayBounds(local, e.cfg.Location)
	yestStart := time.Date(local.Year(), local.Month(), local.Day()-1, 0, 0, 0, 0, e.cfg.Location).Unix()
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, e.cfg.Location).Unix()
	yearStart := time.Date(local.Year(), 1, 1, 0, 0, 0, 0, e.cfg.Location).Unix()

	e.astats.YesterdayRain = e.rainTotal(yestStart, dayStart)
	// Month and year totals exclude today; the generator adds the live
	// day sum so today's rain is never counted twice.
	e.astats.MonthRain = e.rainTotal(monthStart, dayStart)
	e.astats.YearRain = e.rainTotal(yearStart, dayStart)

	if gust, ok, err := e.store.HourGust(asOf); err != nil {
		e.logger.Warn().Err(err).Msg("Hour gust query failed")
	} else if ok {
		e.astats.HourGust = &gust
	} else {
		e.astats.HourGust = nil
	}

	if summary, err := e.store.DaySummary(dayStart, asOf); err != nil {
		e.logger.Warn().Err(err).Msg("Day summary query failed")
	} else if seed, ok := summary.Stats[models.WindSpeed]; ok && seed.Max != nil {
		e.astats.DayWindMax = seed.Max
	} else {
		e.astats.DayWindMax = nil
	}
}

func (e *Engine) rainTotal(start, end int64) *float64 {
	total, found, err := e.store.RainSince(start, end)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Rain total query failed")
		return nil
	}
	if !found {
		return nil
	}
	return &total
}

// dayKey identifies a local calendar day.
func dayKey(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Year()*1000 + local.YearDay()
}

// dayBounds returns the local-midnight bounds of the day containing t.
func dayBounds(t time.Time, loc *time.Location) (start, end int64) {
	local := t.In(loc)
	s := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return s.Unix(), s.AddDate(0, 0, 1).Unix()
}

// lastFixedBoundary returns the most recent instant at the fixed reset
// hour at or before ts.
func lastFixedBoundary(ts int64, hour int, loc *time.Location) int64 {
	local := time.Unix(ts, 0).In(loc)
	b := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if b.Unix() > ts {
		b = b.AddDate(0, 0, -1)
	}
	return b.Unix()
}
