package wxstats

import (
	"fmt"

	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/units"
)

// cacheEntry is the most recent value seen for a field. A nil value can
// be cached; the timestamp then records when the field was last carried.
type cacheEntry struct {
	value *float64
	ts    int64
}

// Cache fills in the gaps left by stations that emit partial packets. It
// keeps the most recent value for every manifest field, and guarantees
// that every field in the cache manifest is always present in a snapshot,
// so consumers that render fixed layouts never have to handle a missing
// key, only a nil value.
type Cache struct {
	units   models.UnitSystem
	entries map[models.Obs]cacheEntry
}

// NewCache primes a cache from a reference record, typically the last
// good archive record. Reference values are only adopted when the record
// carries a recognized unit system; otherwise the fields start out nil
// but timestamped, so staleness accounting works from the first snapshot.
func NewCache(ref models.Sample, now int64) *Cache {
	ts := ref.TS
	if ts <= 0 {
		ts = now
	}
	c := &Cache{
		units:   ref.Units,
		entries: make(map[models.Obs]cacheEntry, len(models.CacheManifest)),
	}
	for _, obs := range models.CacheManifest {
		if v, ok := ref.Fields[obs]; ok && ref.Units != models.UnitNone {
			vv := v
			c.entries[obs] = cacheEntry{value: &vv, ts: ts}
		} else {
			c.entries[obs] = cacheEntry{ts: ts}
		}
	}
	return c
}

// Units returns the cache's established unit system, UnitNone until the
// first tagged packet arrives.
func (c *Cache) Units() models.UnitSystem { return c.units }

// Update overwrites cache entries from a packet. The first tagged packet
// establishes the cache's unit system; later packets in a different
// system are converted before any entry is touched, so the cache never
// mixes units. Fields outside the manifest are ignored, so the snapshot
// key set stays fixed no matter what a station sends.
func (c *Cache) Update(s models.Sample, ts int64) error {
	if c.units == models.UnitNone {
		c.units = s.Units
	} else if s.Units != c.units {
		conv, err := units.ConvertSample(s, c.units)
		if err != nil {
			return fmt.Errorf("cache update: %w", err)
		}
		s = conv
	}
	for obs, v := range s.Fields {
		if _, ok := c.entries[obs]; !ok {
			continue
		}
		vv := v
		c.entries[obs] = cacheEntry{value: &vv, ts: ts}
	}
	return nil
}

// Value returns the cached value for obs unless it is older than maxAge
// seconds as of asOf.
func (c *Cache) Value(obs models.Obs, asOf, maxAge int64) (float64, bool) {
	e, ok := c.entries[obs]
	if !ok || e.value == nil || asOf-e.ts > maxAge {
		return 0, false
	}
	return *e.value, true
}

// Snapshot assembles a complete record from the cache. Every cached field
// is present; values older than maxAge come back nil. The snapshot's
// values are copies, safe to hold across further updates.
func (c *Cache) Snapshot(asOf, maxAge int64) models.Snapshot {
	snap := models.Snapshot{
		TS:     asOf,
		Units:  c.units,
		Values: make(map[models.Obs]*float64, len(c.entries)),
	}
	for obs, e := range c.entries {
		if e.value != nil && asOf-e.ts <= maxAge {
			v := *e.value
			snap.Values[obs] = &v
		} else {
			snap.Values[obs] = nil
		}
	}
	return snap
}
