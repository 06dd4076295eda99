// Package clientraw renders the Weather Display clientraw.txt realtime
// file from the current snapshot and running statistics. The file is a
// single space-separated line of 175 fixed-position fields consumed by
// Saratoga-style dashboards; consumers index fields by position, so every
// field is always emitted and unknown values render as "0.0".
package clientraw

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/units"
	"github.com/afroash/wx-monitor/internal/wxstats"
)

// FieldCount is the number of fields in a clientraw.txt record, including
// the preamble and the end-of-record marker.
const FieldCount = 175

// trendPeriod is how far back the trend fields look, in seconds.
const trendPeriod = 1200

// trendGrace is the tolerance when locating the historical trend record.
const trendGrace = 300

// ArchiveStats carries the archive-derived statistics the generator
// cannot get from the loop buffer. The engine refreshes them once per
// archive record. Nil means unknown; rain totals are mm, speeds m/s.
type ArchiveStats struct {
	YesterdayRain *float64
	MonthRain     *float64 // excluding today
	YearRain      *float64 // excluding today
	HourGust      *float64
	DayWindMax    *models.ObsValue
	WindDirAvg    *float64
}

// StationParams identifies the station in the generated file.
type StationParams struct {
	Name      string
	Latitude  float64
	Longitude float64
	AltitudeM float64
}

// Generator builds clientraw.txt content. It holds only static station
// parameters; all live state arrives per call, so a generator is safe to
// share once constructed.
type Generator struct {
	station        StationParams
	loc            *time.Location
	avgSpeedPeriod int64
	gustPeriod     int64
	logger         zerolog.Logger
}

// NewGenerator creates a generator. avgSpeedPeriod and gustPeriod are the
// history window lengths, in seconds, for the average speed and gust
// fields; a zero gust period means "use the latest value".
func NewGenerator(station StationParams, loc *time.Location, avgSpeedPeriod, gustPeriod int64, logger zerolog.Logger) *Generator {
	if loc == nil {
		loc = time.Local
	}
	logger.Info().
		Str("station", station.Name).
		Int64("avgspeed_period", avgSpeedPeriod).
		Int64("gust_period", gustPeriod).
		Msg("Clientraw generator initialized")
	return &Generator{
		station:        station,
		loc:            loc,
		avgSpeedPeriod: avgSpeedPeriod,
		gustPeriod:     gustPeriod,
		logger:         logger,
	}
}

// Build renders one clientraw record from the snapshot, the loop buffer,
// the archive statistics and the historical record lookup. The snapshot
// and buffer must be in METRICWX units.
func (g *Generator) Build(snap models.Snapshot, buf *wxstats.Buffer, stats ArchiveStats, lookup wxstats.RecordLookup) string {
	ts := snap.TS
	local := time.Unix(ts, 0).In(g.loc)
	f := make([]string, FieldCount)

	// 000 - preamble
	f[0] = "12345"
	// 001 - average wind speed (knots)
	if avg, ok := buf.HistoryAvg(models.WindSpeed, ts, g.avgSpeedPeriod); ok {
		f[1] = num(knots(avg), 1)
	} else {
		f[1] = zero
	}
	// 002 - gust (knots)
	f[2] = numPtr(g.gust(buf, ts), 1)
	// 003 - wind direction
	f[3] = numPtr(get(snap, models.WindDir), 0)
	// 004-006 - outTemp (C), outHumidity, barometer (hPa)
	f[4] = numPtr(get(snap, models.OutTemp), 1)
	f[5] = numPtr(get(snap, models.OutHumidity), 1)
	f[6] = numPtr(get(snap, models.Barometer), 1)
	// 007 - daily rain (mm)
	dayRain := sumPtr(buf.DaySum(models.Rain))
	f[7] = numPtr(dayRain, 1)
	// 008/009 - month and year rain: archive total so far plus today
	f[8] = numPtr(addPtr(stats.MonthRain, dayRain), 1)
	f[9] = numPtr(addPtr(stats.YearRain, dayRain), 1)
	// 010 - rain rate (mm per minute, not hour)
	f[10] = numPtr(scalePtr(get(snap, models.RainRate), 1.0/60.0), 1)
	// 011 - max daily rain rate (mm per minute)
	if m, ok := buf.DayMax(models.RainRate); ok {
		f[11] = num(m.Value/60.0, 1)
	} else {
		f[11] = zero
	}
	// 012/013 - inTemp (C), inHumidity
	f[12] = numPtr(get(snap, models.InTemp), 1)
	f[13] = numPtr(get(snap, models.InHumidity), 1)
	// 014 - soil temperature: no sensor support
	f[14] = zero
	// 015 - forecast icon
	f[15] = "0"
	// 016-018 - WMR968 extra sensors: not implemented
	fillZero(f, 16, 18)
	// 019 - yesterday rain (mm)
	f[19] = numPtr(stats.YesterdayRain, 1)
	// 020-028 - extra temperature/humidity sensors: not implemented
	fillZero(f, 20, 28)
	// 029-031 - local hour, minute, second
	f[29] = local.Format("15")
	f[30] = local.Format("04")
	f[31] = local.Format("05")
	// 032 - station name with time suffix
	f[32] = strings.ReplaceAll(g.station.Name, " ", "") + "-" + local.Format("15:04:05")
	// 033 - lightning count: not implemented
	f[33] = "0"
	// 034 - solar percent of clear-sky maximum
	f[34] = numPtr(g.solarPercent(snap), 0)
	// 035/036 - local day and month, no leading zero
	f[35] = strconv.Itoa(local.Day())
	f[36] = strconv.Itoa(int(local.Month()))
	// 037-043 - battery levels: not implemented, report full
	for i := 37; i <= 43; i++ {
		f[i] = "100"
	}
	// 044/045 - windchill, humidex (C)
	f[44] = numPtr(get(snap, models.WindChill), 1)
	f[45] = numPtr(g.humidex(snap), 1)
	// 046/047 - day max/min outTemp (C)
	f[46] = numPtr(dayMax(buf, models.OutTemp), 1)
	f[47] = numPtr(dayMin(buf, models.OutTemp), 1)
	// 048/049 - icon type and weather description
	f[48] = "0"
	f[49] = "---"
	// 050 - barometer trend over 20 minutes (hPa)
	f[50] = numPtr(g.trend(models.Barometer, get(snap, models.Barometer), units.HPa, lookup, ts), 1)
	// 051-070 - hourly wind speeds: not implemented
	fillZero(f, 51, 70)
	// 071 - day max wind gust (knots)
	f[71] = numPtr(knotsPtr(dayMax(buf, models.WindSpeed)), 1)
	// 072 - dewpoint (C)
	f[72] = numPtr(get(snap, models.Dewpoint), 1)
	// 073 - cloud height (feet)
	f[73] = numPtr(g.cloudbaseFeet(snap), 1)
	// 074 - local date
	f[74] = fmt.Sprintf("%d/%d/%d", local.Day(), int(local.Month()), local.Year())
	// 075-078 - day humidex and windchill extremes (C)
	f[75] = numPtr(dayMax(buf, models.Humidex), 1)
	f[76] = numPtr(dayMin(buf, models.Humidex), 1)
	f[77] = numPtr(dayMax(buf, models.WindChill), 1)
	f[78] = numPtr(dayMin(buf, models.WindChill), 1)
	// 079 - UV index
	f[79] = numPtr(get(snap, models.UV), 1)
	// 080-109 - hourly wind/temperature/rain series: not implemented
	fillZero(f, 80, 109)
	// 110-112 - day heatindex extremes and current heatindex (C)
	f[110] = numPtr(dayMax(buf, models.HeatIndex), 1)
	f[111] = numPtr(dayMin(buf, models.HeatIndex), 1)
	f[112] = numPtr(get(snap, models.HeatIndex), 1)
	// 113 - day max wind speed (knots): archive day stats or loop, whichever
	// is higher; either source alone still counts
	f[113] = numPtr(g.dayWindMax(buf, stats), 1)
	// 114-116 - lightning: not implemented
	f[114] = "0"
	f[115] = "00:00"
	f[116] = "---"
	// 117 - vector average wind direction for the day
	f[117] = numPtr(g.windDirAvg(buf, stats), 1)
	// 118/119 - nexstorm distance/bearing: not implemented
	fillZero(f, 118, 119)
	// 120/121 - extra temperature sensors: not implemented
	fillZero(f, 120, 121)
	// 122-126 - extra humidity sensors: not implemented
	for i := 122; i <= 126; i++ {
		f[i] = "0"
	}
	// 127 - solar radiation (W/m2)
	f[127] = numPtr(get(snap, models.Radiation), 1)
	// 128/129 - day max/min inTemp (C)
	f[128] = numPtr(dayMax(buf, models.InTemp), 1)
	f[129] = numPtr(dayMin(buf, models.InTemp), 1)
	// 130 - apparent temperature (C)
	f[130] = numPtr(g.appTemp(snap), 1)
	// 131/132 - day max/min barometer (hPa)
	f[131] = numPtr(dayMax(buf, models.Barometer), 1)
	f[132] = numPtr(dayMin(buf, models.Barometer), 1)
	// 133 - max gust in the last hour (knots)
	f[133] = numPtr(g.hourGust(buf, stats), 1)
	// 134 - time of last-hour max gust: approximated with packet time
	f[134] = local.Format("15:04")
	// 135 - time of today's max gust
	f[135] = g.extremeTime(buf.DayMax(models.WindSpeed))(local)
	// 136-139 - day appTemp and dewpoint extremes (C)
	f[136] = numPtr(dayMax(buf, models.AppTemp), 1)
	f[137] = numPtr(dayMin(buf, models.AppTemp), 1)
	f[138] = numPtr(dayMax(buf, models.Dewpoint), 1)
	f[139] = numPtr(dayMin(buf, models.Dewpoint), 1)
	// 140 - max gust in the last minute (knots)
	if m, ok := buf.HistoryMax(models.WindSpeed, ts, 60); ok {
		f[140] = num(knots(m.Value), 1)
	} else {
		f[140] = zero
	}
	// 141 - current year
	f[141] = strconv.Itoa(local.Year())
	// 142 - THSWS index: not implemented
	f[142] = zero
	// 143-145 - outTemp, outHumidity and humidex trend indicators
	f[143] = trendLogic(g.trend(models.OutTemp, get(snap, models.OutTemp), units.DegreeC, lookup, ts))
	f[144] = trendLogic(g.trend(models.OutHumidity, get(snap, models.OutHumidity), units.Percent, lookup, ts))
	f[145] = trendLogic(g.trend(models.Humidex, g.humidex(snap), units.DegreeC, lookup, ts))
	// 146-155 - hourly wind directions: not implemented
	fillZero(f, 146, 155)
	// 156 - leaf wetness: no sensor support
	f[156] = zero
	// 157 - soil moisture: no sensor support
	f[157] = "255.0"
	// 158 - 10 minute average wind speed (knots)
	if avg, ok := buf.HistoryAvg(models.WindSpeed, ts, wxstats.MaxAge); ok {
		f[158] = num(knots(avg), 1)
	} else {
		f[158] = zero
	}
	// 159 - wet bulb temperature (C)
	f[159] = numPtr(g.wetBulb(snap), 1)
	// 160/161 - latitude, longitude (east negative)
	f[160] = num(g.station.Latitude, 1)
	f[161] = num(-1*g.station.Longitude, 1)
	// 162 - rain since the fixed daily reset (mm)
	f[162] = numPtr(sumPtr(buf.FixedSum(models.Rain)), 1)
	// 163/164 - day max/min outHumidity
	f[163] = numPtr(dayMax(buf, models.OutHumidity), 1)
	f[164] = numPtr(dayMin(buf, models.OutHumidity), 1)
	// 165 - midnight-reset rain total (mm)
	f[165] = numPtr(dayRain, 1)
	// 166 - time of day min windchill
	f[166] = g.extremeTime(buf.DayMin(models.WindChill))(local)
	// 167-172 - Current Cost channels: not implemented
	fillZero(f, 167, 172)
	// 173 - day wind run (km)
	f[173] = num(buf.WindRun(), 1)
	// 174 - record end marker
	f[174] = "!!EOR!!"

	return strings.Join(f, " ")
}

// gust returns the gust speed in knots: the history maximum over the gust
// period, or the latest speed when no period is configured.
func (g *Generator) gust(buf *wxstats.Buffer, ts int64) *float64 {
	if g.gustPeriod > 0 {
		if m, ok := buf.HistoryMax(models.WindSpeed, ts, g.gustPeriod); ok {
			v := knots(m.Value)
			return &v
		}
		return nil
	}
	if last, ok := buf.Last(models.WindSpeed); ok {
		v := knots(last.Value)
		return &v
	}
	return nil
}

// dayWindMax merges the archive day stats maximum with the loop buffer
// maximum.
func (g *Generator) dayWindMax(buf *wxstats.Buffer, stats ArchiveStats) *float64 {
	var loop, archive *float64
	if m, ok := buf.DayMax(models.WindSpeed); ok {
		v := m.Value
		loop = &v
	}
	if stats.DayWindMax != nil {
		v := stats.DayWindMax.Value
		archive = &v
	}
	if v, ok := wxstats.MaxWithAbsent(loop, archive); ok {
		kt := knots(v)
		return &kt
	}
	return nil
}

// hourGust merges the archive hour gust with the loop buffer day maximum.
func (g *Generator) hourGust(buf *wxstats.Buffer, stats ArchiveStats) *float64 {
	var loop *float64
	if m, ok := buf.DayMax(models.WindSpeed); ok {
		v := m.Value
		loop = &v
	}
	if v, ok := wxstats.MaxWithAbsent(stats.HourGust, loop); ok {
		kt := knots(v)
		return &kt
	}
	return nil
}

// windDirAvg prefers the loop buffer's vector average and falls back to
// the archive average when the buffer has no wind yet.
func (g *Generator) windDirAvg(buf *wxstats.Buffer, stats ArchiveStats) *float64 {
	if dir, ok := buf.WindVectorAvgDir(); ok {
		return &dir
	}
	return stats.WindDirAvg
}

// humidex reads the snapshot humidex, deriving it from temperature and
// humidity when the station does not report one.
func (g *Generator) humidex(snap models.Snapshot) *float64 {
	if v := get(snap, models.Humidex); v != nil {
		return v
	}
	t := get(snap, models.OutTemp)
	h := get(snap, models.OutHumidity)
	if t == nil || h == nil {
		return nil
	}
	if v, ok := wxstats.HumidexC(*t, *h); ok {
		return &v
	}
	return nil
}

// appTemp reads the snapshot apparent temperature, deriving it when
// absent.
func (g *Generator) appTemp(snap models.Snapshot) *float64 {
	if v := get(snap, models.AppTemp); v != nil {
		return v
	}
	t := get(snap, models.OutTemp)
	h := get(snap, models.OutHumidity)
	w := get(snap, models.WindSpeed)
	if t == nil || h == nil || w == nil {
		return nil
	}
	if v, ok := wxstats.ApparentTempC(*t, *h, *w); ok {
		return &v
	}
	return nil
}

// wetBulb derives the wet bulb temperature from the snapshot.
func (g *Generator) wetBulb(snap models.Snapshot) *float64 {
	t := get(snap, models.OutTemp)
	h := get(snap, models.OutHumidity)
	p := get(snap, models.Barometer)
	if t == nil || h == nil || p == nil {
		return nil
	}
	if v, ok := wxstats.WetBulb(*t, *h, *p); ok {
		return &v
	}
	return nil
}

// cloudbaseFeet reads or derives the cloud base, converted to feet.
func (g *Generator) cloudbaseFeet(snap models.Snapshot) *float64 {
	var meters *float64
	if v := get(snap, models.Cloudbase); v != nil {
		meters = v
	} else {
		t := get(snap, models.OutTemp)
		h := get(snap, models.OutHumidity)
		if t != nil && h != nil {
			if v, ok := wxstats.CloudbaseMeters(*t, *h, g.station.AltitudeM); ok {
				meters = &v
			}
		}
	}
	if meters == nil {
		return nil
	}
	ft := units.MustConvert(units.Value{V: *meters, Unit: units.Meter}, units.Foot)
	return &ft
}

// solarPercent expresses the measured radiation as a percentage of the
// clear-sky maximum when both are known.
func (g *Generator) solarPercent(snap models.Snapshot) *float64 {
	rad := get(snap, models.Radiation)
	max := get(snap, models.MaxSolarRad)
	if rad == nil || max == nil {
		return nil
	}
	if v, ok := wxstats.SolarPercent(*rad, *max); ok {
		return &v
	}
	return nil
}

// trend computes the change in obs over the trend period, nil when
// unknown.
func (g *Generator) trend(obs models.Obs, now *float64, unit units.Unit, lookup wxstats.RecordLookup, ts int64) *float64 {
	if now == nil {
		return nil
	}
	cur := units.Value{V: *now, Unit: unit}
	if v, ok := wxstats.Trend(obs, &cur, lookup, ts-trendPeriod, trendGrace); ok {
		return &v
	}
	return nil
}

// extremeTime formats the timestamp of a day extreme as local HH:MM,
// falling back to the packet time when the extreme is unset.
func (g *Generator) extremeTime(v models.ObsValue, ok bool) func(fallback time.Time) string {
	return func(fallback time.Time) string {
		if !ok {
			return fallback.Format("15:04")
		}
		return time.Unix(v.TS, 0).In(g.loc).Format("15:04")
	}
}

// WriteFile writes the clientraw content atomically: to a temp file in
// the target directory, then renamed over the destination, so dashboard
// pollers never read a half-written file.
func WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".clientraw-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

const zero = "0.0"

// num formats a value with the given decimal places.
func num(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

// numPtr formats a possibly-absent value.
func numPtr(v *float64, places int) string {
	if v == nil {
		return zero
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}

// trendLogic maps a trend to the clientraw +1/-1/0 convention.
func trendLogic(trend *float64) string {
	switch {
	case trend == nil:
		return "0"
	case *trend > 0:
		return "+1"
	case *trend < 0:
		return "-1"
	default:
		return "0"
	}
}

// get extracts a snapshot value as a pointer, nil when absent or stale.
func get(snap models.Snapshot, obs models.Obs) *float64 {
	if v, ok := snap.Get(obs); ok {
		return &v
	}
	return nil
}

// dayMax reads a buffer day maximum as a pointer.
func dayMax(buf *wxstats.Buffer, obs models.Obs) *float64 {
	if m, ok := buf.DayMax(obs); ok {
		return &m.Value
	}
	return nil
}

// dayMin reads a buffer day minimum as a pointer.
func dayMin(buf *wxstats.Buffer, obs models.Obs) *float64 {
	if m, ok := buf.DayMin(obs); ok {
		return &m.Value
	}
	return nil
}

// sumPtr converts a (sum, ok) pair to a pointer.
func sumPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// addPtr adds two possibly-absent values; absent operands count as zero,
// both absent is absent.
func addPtr(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	var s float64
	if a != nil {
		s += *a
	}
	if b != nil {
		s += *b
	}
	return &s
}

// scalePtr multiplies a possibly-absent value.
func scalePtr(v *float64, k float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * k
	return &s
}

// fillZero sets fields lo..hi inclusive to "0.0".
func fillZero(f []string, lo, hi int) {
	for i := lo; i <= hi; i++ {
		f[i] = zero
	}
}

// knots converts a speed in m/s to knots.
func knots(ms float64) float64 {
	return units.MustConvert(units.Value{V: ms, Unit: units.MeterPerSec}, units.Knot)
}

// knotsPtr converts a possibly-absent m/s speed to knots.
func knotsPtr(ms *float64) *float64 {
	if ms == nil {
		return nil
	}
	v := knots(*ms)
	return &v
}
