package wxstats

import (
	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/units"
)

// RecordLookup returns the persisted record nearest ts within grace
// seconds, or ok=false when none exists. Implemented by the archive
// store; the core never touches a database itself.
type RecordLookup func(ts, grace int64) (models.Sample, bool)

// Trend computes the change in an observation over a trend period: the
// current value minus the value in the record nearest thenTS. A nil
// current value, a lookup miss, an absent observation or an impossible
// unit conversion all yield ok=false, an expected outcome distinct from
// a genuine zero trend, never an error.
func Trend(obs models.Obs, now *units.Value, lookup RecordLookup, thenTS, grace int64) (float64, bool) {
	if now == nil || lookup == nil {
		return 0, false
	}
	rec, ok := lookup(thenTS, grace)
	if !ok {
		return 0, false
	}
	v, ok := rec.Fields[obs]
	if !ok || rec.Units == models.UnitNone {
		return 0, false
	}
	from := units.StandardUnit(rec.Units, units.GroupOf(obs))
	then, err := units.Convert(units.Value{V: v, Unit: from}, now.Unit)
	if err != nil {
		return 0, false
	}
	return now.V - then.V, true
}
