package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DaemonConfig holds all configuration for the aggregation daemon
type DaemonConfig struct {
	Server    ServerSettings    `yaml:"server"`
	Station   StationSettings   `yaml:"station"`
	Clientraw ClientrawSettings `yaml:"clientraw"`
	Database  DatabaseSettings  `yaml:"database"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// ServerSettings contains HTTP server configuration
type ServerSettings struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	AuthToken      string        `yaml:"auth_token"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// StationSettings describes the station the daemon aggregates for
type StationSettings struct {
	Name      string  `yaml:"name"`
	Type      string  `yaml:"type"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"` // metres
	Timezone  string  `yaml:"timezone"` // IANA name; empty means local
}

// ClientrawSettings controls the generated realtime file
type ClientrawSettings struct {
	Path           string        `yaml:"path"`
	MinInterval    time.Duration `yaml:"min_interval"`
	MaxCacheAge    int64         `yaml:"max_cache_age"`    // seconds
	AvgSpeedPeriod int64         `yaml:"avgspeed_period"`  // seconds
	GustPeriod     int64         `yaml:"gust_period"`      // seconds; 0 = latest
	FixedResetHour int           `yaml:"fixed_reset_hour"` // local hour
}

// DatabaseSettings contains archive storage configuration
type DatabaseSettings struct {
	Path          string        `yaml:"path"`
	RetentionDays int           `yaml:"retention_days"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// LoadDaemonConfig loads daemon configuration from a YAML file
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var config DaemonConfig
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	config.ApplyDefaults()
	config.OverrideFromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for daemon config
func (dc *DaemonConfig) ApplyDefaults() {
	if dc.Server.Port == 0 {
		dc.Server.Port = 8081
	}
	if dc.Server.Host == "" {
		dc.Server.Host = "localhost"
	}
	if dc.Server.ReadTimeout == 0 {
		dc.Server.ReadTimeout = 60 * time.Second
	}
	if dc.Server.WriteTimeout == 0 {
		dc.Server.WriteTimeout = 10 * time.Second
	}
	if dc.Clientraw.Path == "" {
		dc.Clientraw.Path = "./clientraw.txt"
	}
	if dc.Clientraw.MinInterval == 0 {
		dc.Clientraw.MinInterval = 10 * time.Second
	}
	if dc.Clientraw.MaxCacheAge == 0 {
		dc.Clientraw.MaxCacheAge = 600
	}
	if dc.Clientraw.AvgSpeedPeriod == 0 {
		dc.Clientraw.AvgSpeedPeriod = 600
	}
	if dc.Clientraw.FixedResetHour == 0 {
		dc.Clientraw.FixedResetHour = 9
	}
	if dc.Database.Path == "" {
		dc.Database.Path = "./data/wx-monitor.db"
	}
	if dc.Database.RetentionDays == 0 {
		dc.Database.RetentionDays = 400
	}
	if dc.Database.CleanupPeriod == 0 {
		dc.Database.CleanupPeriod = 24 * time.Hour
	}
	if dc.Logging.Level == "" {
		dc.Logging.Level = "info"
	}
	if dc.Logging.Format == "" {
		dc.Logging.Format = "json"
	}
}

// OverrideFromEnv overrides config from environment variables
func (dc *DaemonConfig) OverrideFromEnv() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			dc.Server.Port = port
		}
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		dc.Server.Host = v
	}
	if v := os.Getenv("SERVER_AUTH_TOKEN"); v != "" {
		dc.Server.AuthToken = v
	}
	if v := os.Getenv("CLIENTRAW_PATH"); v != "" {
		dc.Clientraw.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		dc.Logging.Level = v
	}
}

// Validate checks if daemon configuration is valid
func (dc *DaemonConfig) Validate() error {
	if dc.Server.Port < 1 || dc.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if dc.Server.AuthToken == "" {
		return fmt.Errorf("auth token is required")
	}
	if dc.Station.Name == "" {
		return fmt.Errorf("station name is required")
	}
	if dc.Station.Latitude < -90 || dc.Station.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if dc.Station.Longitude < -180 || dc.Station.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	if dc.Station.Timezone != "" {
		if _, err := time.LoadLocation(dc.Station.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", dc.Station.Timezone, err)
		}
	}
	if dc.Clientraw.MinInterval < 0 {
		return fmt.Errorf("min interval must not be negative")
	}
	if dc.Clientraw.MaxCacheAge < 0 {
		return fmt.Errorf("max cache age must not be negative")
	}
	if dc.Clientraw.AvgSpeedPeriod < 0 || dc.Clientraw.GustPeriod < 0 {
		return fmt.Errorf("wind periods must not be negative")
	}
	if dc.Clientraw.FixedResetHour < 0 || dc.Clientraw.FixedResetHour > 23 {
		return fmt.Errorf("fixed reset hour must be between 0 and 23")
	}
	if dc.Database.RetentionDays < 1 {
		return fmt.Errorf("retention days must be at least 1")
	}
	return nil
}

// Location resolves the configured timezone, falling back to the host's
func (dc *DaemonConfig) Location() *time.Location {
	if dc.Station.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(dc.Station.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// String returns a safe string representation (hides auth token)
func (dc *DaemonConfig) String() string {
	return fmt.Sprintf("DaemonConfig{Server: [Host=%s, Port=%d, Token=%s], Station: %+v, Clientraw: %+v, Database: %+v, Logging: %+v}",
		dc.Server.Host,
		dc.Server.Port,
		maskToken(dc.Server.AuthToken),
		dc.Station,
		dc.Clientraw,
		dc.Database,
		dc.Logging,
	)
}
