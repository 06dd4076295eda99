package models

import "time"

// StationInfo contains metadata about the weather station
type StationInfo struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Altitude is the station altitude in metres.
	Altitude  float64   `json:"altitude"`
	Type      string    `json:"station_type"`
	StartTime time.Time `json:"start_time"`
}

// Uptime returns the duration since the station daemon started
func (s *StationInfo) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// NewStationInfo creates a new StationInfo with the current time as start time
func NewStationInfo(name string, lat, lon, altitude float64, stationType string) *StationInfo {
	return &StationInfo{
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  altitude,
		Type:      stationType,
		StartTime: time.Now(),
	}
}
