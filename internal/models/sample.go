package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// UnitSystem identifies the unit system a packet or record is expressed in.
// The values match the weewx usUnits encoding so archive databases written
// by other tools remain readable.
type UnitSystem int

const (
	UnitNone     UnitSystem = 0 // unknown/untagged
	UnitUS       UnitSystem = 1
	UnitMetric   UnitSystem = 16
	UnitMetricWX UnitSystem = 17
)

func (u UnitSystem) String() string {
	switch u {
	case UnitUS:
		return "US"
	case UnitMetric:
		return "METRIC"
	case UnitMetricWX:
		return "METRICWX"
	}
	return "NONE"
}

// ObsValue pairs an observed value with the epoch second it was observed.
type ObsValue struct {
	Value float64 `json:"value"`
	TS    int64   `json:"ts"`
}

// Sample is one observation event. Fields holds only the observations the
// packet actually carried; a missing key means the value is unknown, which
// is distinct from a value of zero.
type Sample struct {
	TS     int64           `json:"dateTime"`
	Units  UnitSystem      `json:"usUnits"`
	Fields map[Obs]float64 `json:"fields"`
}

// NewSample creates an empty sample for the given time and unit system.
func NewSample(ts int64, units UnitSystem) Sample {
	return Sample{TS: ts, Units: units, Fields: make(map[Obs]float64)}
}

// Get returns the value for obs and whether the sample carries it.
func (s Sample) Get(obs Obs) (float64, bool) {
	v, ok := s.Fields[obs]
	return v, ok
}

// Set records a value for obs.
func (s Sample) Set(obs Obs, v float64) {
	s.Fields[obs] = v
}

// Copy returns a deep copy of the sample.
func (s Sample) Copy() Sample {
	out := Sample{TS: s.TS, Units: s.Units, Fields: make(map[Obs]float64, len(s.Fields))}
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return out
}

// IsValid checks that the sample carries a plausible timestamp. Samples
// with no timestamp cannot be routed to the stats buffer.
func (s Sample) IsValid() bool {
	return s.TS > 0
}

func (s Sample) String() string {
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, s.Fields[Obs(k)]))
	}
	return fmt.Sprintf("Sample[%s %s %s]",
		time.Unix(s.TS, 0).UTC().Format(time.RFC3339),
		s.Units,
		strings.Join(parts, " "))
}

// Snapshot is a synthesized, always-complete record. Every key the cache
// tracks is present in Values; a nil value means the field is unknown or
// stale. The stable key set is what lets fixed-layout consumers index
// fields without existence checks.
type Snapshot struct {
	TS     int64            `json:"dateTime"`
	Units  UnitSystem       `json:"usUnits"`
	Values map[Obs]*float64 `json:"fields"`
}

// Get returns the value for obs if it is present and non-nil.
func (s Snapshot) Get(obs Obs) (float64, bool) {
	v, ok := s.Values[obs]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}
