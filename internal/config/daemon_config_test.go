package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validDaemonConfig() DaemonConfig {
	cfg := DaemonConfig{
		Server: ServerSettings{
			AuthToken: "token123",
		},
		Station: StationSettings{
			Name:      "Test Town",
			Latitude:  -33.5,
			Longitude: 151.2,
			Altitude:  100.0,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestLoadDaemonConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "daemon-config.yaml")

	configContent := `
server:
  port: 9000
  host: "0.0.0.0"
  auth_token: "daemon-token"
  allowed_origins:
    - "https://wx.example.com"

station:
  name: "Test Town"
  latitude: -33.5
  longitude: 151.2
  altitude: 100.0
  timezone: "UTC"

clientraw:
  path: "/tmp/clientraw.txt"
  min_interval: 10s
  max_cache_age: 600
  avgspeed_period: 600
  fixed_reset_hour: 9

database:
  path: "/tmp/wx.db"
  retention_days: 400
  cleanup_period: 24h

logging:
  level: "debug"
  format: "console"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadDaemonConfig(configPath)
	if err != nil {
		t.Fatalf("LoadDaemonConfig failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://wx.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Station.Name != "Test Town" {
		t.Errorf("Station.Name = %v, want Test Town", cfg.Station.Name)
	}
	if cfg.Clientraw.MinInterval != 10*time.Second {
		t.Errorf("Clientraw.MinInterval = %v, want 10s", cfg.Clientraw.MinInterval)
	}
	if cfg.Clientraw.FixedResetHour != 9 {
		t.Errorf("Clientraw.FixedResetHour = %d, want 9", cfg.Clientraw.FixedResetHour)
	}
	if cfg.Database.RetentionDays != 400 {
		t.Errorf("Database.RetentionDays = %d, want 400", cfg.Database.RetentionDays)
	}
	if loc := cfg.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestDaemonConfig_ApplyDefaults(t *testing.T) {
	cfg := &DaemonConfig{}
	cfg.ApplyDefaults()

	if cfg.Server.Port != 8081 {
		t.Errorf("Default Server.Port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Clientraw.MaxCacheAge != 600 {
		t.Errorf("Default MaxCacheAge = %d, want 600", cfg.Clientraw.MaxCacheAge)
	}
	if cfg.Clientraw.AvgSpeedPeriod != 600 {
		t.Errorf("Default AvgSpeedPeriod = %d, want 600", cfg.Clientraw.AvgSpeedPeriod)
	}
	if cfg.Clientraw.FixedResetHour != 9 {
		t.Errorf("Default FixedResetHour = %d, want 9", cfg.Clientraw.FixedResetHour)
	}
	if cfg.Database.RetentionDays != 400 {
		t.Errorf("Default RetentionDays = %d, want 400", cfg.Database.RetentionDays)
	}
	if cfg.Database.CleanupPeriod != 24*time.Hour {
		t.Errorf("Default CleanupPeriod = %v, want 24h", cfg.Database.CleanupPeriod)
	}
}

func TestDaemonConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*DaemonConfig)
		wantError bool
	}{
		{"valid config", func(c *DaemonConfig) {}, false},
		{"port out of range", func(c *DaemonConfig) { c.Server.Port = 70000 }, true},
		{"missing auth token", func(c *DaemonConfig) { c.Server.AuthToken = "" }, true},
		{"missing station name", func(c *DaemonConfig) { c.Station.Name = "" }, true},
		{"latitude out of range", func(c *DaemonConfig) { c.Station.Latitude = -95.0 }, true},
		{"longitude out of range", func(c *DaemonConfig) { c.Station.Longitude = 200.0 }, true},
		{"bad timezone", func(c *DaemonConfig) { c.Station.Timezone = "Nowhere/Nothing" }, true},
		{"negative min interval", func(c *DaemonConfig) { c.Clientraw.MinInterval = -time.Second }, true},
		{"reset hour out of range", func(c *DaemonConfig) { c.Clientraw.FixedResetHour = 24 }, true},
		{"zero retention", func(c *DaemonConfig) { c.Database.RetentionDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDaemonConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestDaemonConfig_LocationFallback(t *testing.T) {
	cfg := validDaemonConfig()
	cfg.Station.Timezone = ""
	if loc := cfg.Location(); loc != time.Local {
		t.Errorf("Location() = %v, want time.Local for empty timezone", loc)
	}
}
