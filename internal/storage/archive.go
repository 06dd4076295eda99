package storage

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/units"
	"github.com/afroash/wx-monitor/internal/wxstats"
)

// Store defines the interface for archive record storage
type Store interface {
	Close() error
	Migrate() error
	InsertRecord(rec models.Sample) error
	InsertBatch(recs []models.Sample) error
	Record(ts, grace int64) (models.Sample, bool, error)
	LastRecord() (models.Sample, bool, error)
	RecordsInRange(start, end int64) ([]models.Sample, error)
	DaySummary(start, end int64) (*wxstats.DaySummary, error)
	RainSince(start, end int64) (float64, bool, error)
	HourGust(asOf int64) (float64, bool, error)
	DeleteOlderThan(days int) (int64, error)
	StorageStats() (*StorageStats, error)
}

// Compile-time interface check
var _ Store = (*ArchiveStore)(nil)

// ArchiveStore handles persistent storage of archive records. The schema
// follows the weewx archive table layout (dateTime primary key, usUnits
// tag, one REAL column per observation) so databases written by other
// weather tooling remain readable.
type ArchiveStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// StorageStats contains information about the database
type StorageStats struct {
	TotalRecords   int64     `json:"total_records"`
	OldestRecord   time.Time `json:"oldest_record,omitempty"`
	NewestRecord   time.Time `json:"newest_record,omitempty"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
}

// archiveColumns lists the observation columns of the archive table, in
// the order queries bind them.
var archiveColumns = []models.Obs{
	models.OutTemp, models.InTemp, models.OutHumidity, models.InHumidity,
	models.Barometer, models.WindSpeed, models.WindDir, models.WindGust,
	models.Rain, models.RainRate, models.Dewpoint, models.WindChill,
	models.HeatIndex, models.Humidex, models.AppTemp, models.Radiation,
	models.MaxSolarRad, models.UV, models.Cloudbase, models.WindRun,
}

var (
	insertSQL string
	selectSQL string
)

func init() {
	cols := make([]string, len(archiveColumns))
	holes := make([]string, len(archiveColumns))
	for i, c := range archiveColumns {
		cols[i] = string(c)
		holes[i] = "?"
	}
	insertSQL = fmt.Sprintf(
		"INSERT OR REPLACE INTO archive (dateTime, usUnits, %s) VALUES (?, ?, %s)",
		strings.Join(cols, ", "), strings.Join(holes, ", "))
	selectSQL = fmt.Sprintf(
		"SELECT dateTime, usUnits, %s FROM archive", strings.Join(cols, ", "))
}

// NewArchiveStore creates a new archive store instance
func NewArchiveStore(dbPath string, logger zerolog.Logger) (*ArchiveStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply performance pragmas for SQLite
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &ArchiveStore{
		db:     db,
		logger: logger,
	}

	// Auto-migrate schema
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("Archive store initialized")

	return store, nil
}

// Close closes the database connection
func (s *ArchiveStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the database schema if it doesn't exist
func (s *ArchiveStore) Migrate() error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS archive (\n")
	b.WriteString("\tdateTime INTEGER NOT NULL PRIMARY KEY,\n")
	b.WriteString("\tusUnits INTEGER NOT NULL")
	for _, c := range archiveColumns {
		b.WriteString(",\n\t")
		b.WriteString(string(c))
		b.WriteString(" REAL")
	}
	b.WriteString("\n);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_archive_time ON archive(dateTime DESC);")

	if _, err := s.db.Exec(b.String()); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Debug().Msg("Database schema migrated")
	return nil
}

// recordArgs flattens a sample into the insert bind order. Observations
// the record does not carry become NULL, preserving the distinction
// between unknown and zero.
func recordArgs(rec models.Sample) []interface{} {
	args := make([]interface{}, 0, len(archiveColumns)+2)
	args = append(args, rec.TS, int(rec.Units))
	for _, c := range archiveColumns {
		if v, ok := rec.Fields[c]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

// InsertRecord inserts a single archive record into the database
func (s *ArchiveStore) InsertRecord(rec models.Sample) error {
	if !rec.IsValid() {
		return fmt.Errorf("record has no timestamp")
	}

	if _, err := s.db.Exec(insertSQL, recordArgs(rec)...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// InsertBatch inserts multiple records in a single transaction
func (s *ArchiveStore) InsertBatch(recs []models.Sample) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if !rec.IsValid() {
			return fmt.Errorf("record has no timestamp")
		}
		if _, err := stmt.Exec(recordArgs(rec)...); err != nil {
			return fmt.Errorf("failed to insert record in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug().Int("count", len(recs)).Msg("Batch insert completed")
	return nil
}

// Record returns the archive record nearest ts within grace seconds. The
// second return is false when no record falls inside the window, a normal
// outcome for stations with archive gaps.
func (s *ArchiveStore) Record(ts, grace int64) (models.Sample, bool, error) {
	query := selectSQL + ` WHERE dateTime BETWEEN ? AND ? ORDER BY ABS(dateTime - ?) LIMIT 1`
	row := s.db.QueryRow(query, ts-grace, ts+grace, ts)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return models.Sample{}, false, nil
	}
	if err != nil {
		return models.Sample{}, false, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, true, nil
}

// LastRecord returns the most recent archive record
func (s *ArchiveStore) LastRecord() (models.Sample, bool, error) {
	row := s.db.QueryRow(selectSQL + " ORDER BY dateTime DESC LIMIT 1")

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return models.Sample{}, false, nil
	}
	if err != nil {
		return models.Sample{}, false, fmt.Errorf("failed to get last record: %w", err)
	}
	return rec, true, nil
}

// RecordsInRange returns records with start < dateTime <= end, oldest
// first. The half-open interval matches the weewx archive convention: a
// record timestamped on a boundary belongs to the period it closes.
func (s *ArchiveStore) RecordsInRange(start, end int64) ([]models.Sample, error) {
	query := selectSQL + " WHERE dateTime > ? AND dateTime <= ? ORDER BY dateTime ASC"
	rows, err := s.db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []models.Sample
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return recs, nil
}

// DaySummary folds the records of one day into seed statistics for the
// stats buffer: min/max with timestamps for the hi/lo observations, the
// rain sum, and the wind run total. Values are converted to METRICWX
// record by record, so archives with mixed unit systems still seed
// correctly.
func (s *ArchiveStore) DaySummary(start, end int64) (*wxstats.DaySummary, error) {
	recs, err := s.RecordsInRange(start, end)
	if err != nil {
		return nil, err
	}

	summary := &wxstats.DaySummary{Stats: make(map[models.Obs]wxstats.SeriesSeed)}
	for _, rec := range recs {
		conv, err := units.ConvertSample(rec, models.UnitMetricWX)
		if err != nil {
			s.logger.Warn().Err(err).Int64("dateTime", rec.TS).Msg("Skipping unconvertible record")
			continue
		}
		for _, obs := range models.HiLoManifest {
			v, ok := conv.Fields[obs]
			if !ok {
				continue
			}
			seed := summary.Stats[obs]
			if seed.Min == nil || v < seed.Min.Value {
				seed.Min = &models.ObsValue{Value: v, TS: conv.TS}
			}
			if seed.Max == nil || v > seed.Max.Value {
				seed.Max = &models.ObsValue{Value: v, TS: conv.TS}
			}
			summary.Stats[obs] = seed
		}
		if v, ok := conv.Fields[models.Rain]; ok {
			seed := summary.Stats[models.Rain]
			seed.Sum += v
			seed.HasSum = true
			summary.Stats[models.Rain] = seed
		}
		if v, ok := conv.Fields[models.WindRun]; ok {
			summary.WindRun += v
		}
	}

	return summary, nil
}

// RainSince sums the rain column over start < dateTime <= end, in mm.
// The second return is false when no record in the range carries rain.
func (s *ArchiveStore) RainSince(start, end int64) (float64, bool, error) {
	query := `SELECT dateTime, usUnits, rain FROM archive
		WHERE dateTime > ? AND dateTime <= ? AND rain IS NOT NULL`
	rows, err := s.db.Query(query, start, end)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query rain: %w", err)
	}
	defer rows.Close()

	var total float64
	found := false
	for rows.Next() {
		var ts int64
		var usUnits int
		var rain float64
		if err := rows.Scan(&ts, &usUnits, &rain); err != nil {
			return 0, false, fmt.Errorf("failed to scan rain: %w", err)
		}
		from := units.StandardUnit(models.UnitSystem(usUnits), units.GroupRain)
		mm, err := units.Convert(units.Value{V: rain, Unit: from}, units.MM)
		if err != nil {
			s.logger.Warn().Err(err).Int64("dateTime", ts).Msg("Skipping unconvertible rain value")
			continue
		}
		total += mm.V
		found = true
	}

	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("error iterating rows: %w", err)
	}

	return total, found, nil
}

// HourGust returns the highest wind gust recorded in the hour before
// asOf, in m/s. Records lacking a gust fall back to their wind speed.
func (s *ArchiveStore) HourGust(asOf int64) (float64, bool, error) {
	query := `SELECT dateTime, usUnits, windGust, windSpeed FROM archive
		WHERE dateTime > ? AND dateTime <= ?`
	rows, err := s.db.Query(query, asOf-3600, asOf)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query gusts: %w", err)
	}
	defer rows.Close()

	best := math.Inf(-1)
	found := false
	for rows.Next() {
		var ts int64
		var usUnits int
		var gust, speed sql.NullFloat64
		if err := rows.Scan(&ts, &usUnits, &gust, &speed); err != nil {
			return 0, false, fmt.Errorf("failed to scan gust: %w", err)
		}
		pick := gust
		if !pick.Valid {
			pick = speed
		}
		if !pick.Valid {
			continue
		}
		from := units.StandardUnit(models.UnitSystem(usUnits), units.GroupSpeed)
		ms, err := units.Convert(units.Value{V: pick.Float64, Unit: from}, units.MeterPerSec)
		if err != nil {
			s.logger.Warn().Err(err).Int64("dateTime", ts).Msg("Skipping unconvertible gust value")
			continue
		}
		if ms.V > best {
			best = ms.V
			found = true
		}
	}

	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("error iterating rows: %w", err)
	}

	if !found {
		return 0, false, nil
	}
	return best, true, nil
}

// DeleteOlderThan removes records older than the specified number of days
func (s *ArchiveStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := s.db.Exec("DELETE FROM archive WHERE dateTime < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info().
		Int("days", days).
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Deleted old records")

	return deleted, nil
}

// StorageStats returns statistics about the database
func (s *ArchiveStore) StorageStats() (*StorageStats, error) {
	stats := &StorageStats{}

	err := s.db.QueryRow("SELECT COUNT(*) FROM archive").Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	if stats.TotalRecords == 0 {
		return stats, nil
	}

	var oldest, newest int64
	err = s.db.QueryRow("SELECT MIN(dateTime), MAX(dateTime) FROM archive").Scan(&oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to get timestamp range: %w", err)
	}
	stats.OldestRecord = time.Unix(oldest, 0).UTC()
	stats.NewestRecord = time.Unix(newest, 0).UTC()

	// Get database size using PRAGMA
	var pageCount, pageSize int64
	s.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	stats.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)

	return stats, nil
}

// scanRecord scans one archive row into a sample, mapping NULL columns
// back to absent fields.
func scanRecord(row interface{ Scan(...interface{}) error }) (models.Sample, error) {
	var ts int64
	var usUnits int
	vals := make([]sql.NullFloat64, len(archiveColumns))

	dest := make([]interface{}, 0, len(archiveColumns)+2)
	dest = append(dest, &ts, &usUnits)
	for i := range vals {
		dest = append(dest, &vals[i])
	}

	if err := row.Scan(dest...); err != nil {
		return models.Sample{}, err
	}

	rec := models.NewSample(ts, models.UnitSystem(usUnits))
	for i, c := range archiveColumns {
		if vals[i].Valid {
			rec.Fields[c] = vals[i].Float64
		}
	}
	return rec, nil
}
