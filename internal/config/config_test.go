package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
station:
  name: "Test Town"
  type: "simulator"
  latitude: -33.5
  longitude: 151.2
  altitude: 100.0
  read_interval: 2s

server:
  url: "wss://example.com/station-stream"
  auth_token: "test-token-12345"
  connect_timeout: 10s
  reconnect_interval: 1s
  max_reconnect_interval: 5m
  ping_interval: 30s
  pong_timeout: 10s

buffer:
  size: 1000
  drop_oldest: true

logging:
  level: "info"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Station.Name != "Test Town" {
		t.Errorf("Station.Name = %v, want Test Town", cfg.Station.Name)
	}
	if cfg.Station.Latitude != -33.5 {
		t.Errorf("Station.Latitude = %v, want -33.5", cfg.Station.Latitude)
	}
	if cfg.Station.ReadInterval != 2*time.Second {
		t.Errorf("Station.ReadInterval = %v, want 2s", cfg.Station.ReadInterval)
	}
	if cfg.Server.URL != "wss://example.com/station-stream" {
		t.Errorf("Server.URL = %v", cfg.Server.URL)
	}
	if cfg.Server.AuthToken != "test-token-12345" {
		t.Errorf("Server.AuthToken = %v", cfg.Server.AuthToken)
	}
	if cfg.Buffer.Size != 1000 {
		t.Errorf("Buffer.Size = %v, want 1000", cfg.Buffer.Size)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Station.Type != "simulator" {
		t.Errorf("Default Station.Type = %v, want simulator", cfg.Station.Type)
	}
	if cfg.Station.ReadInterval != 2*time.Second {
		t.Errorf("Default ReadInterval = %v, want 2s", cfg.Station.ReadInterval)
	}
	if cfg.Buffer.Size != 1000 {
		t.Errorf("Default Buffer.Size = %v, want 1000", cfg.Buffer.Size)
	}
	if !cfg.Buffer.DropOldest {
		t.Error("Default Buffer.DropOldest should be true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Default Logging.Level = %v, want info", cfg.Logging.Level)
	}
}

func TestConfig_OverrideFromEnv(t *testing.T) {
	os.Setenv("STATION_NAME", "Env Town")
	os.Setenv("SERVER_URL", "wss://env-server.com/ws")
	os.Setenv("SERVER_AUTH_TOKEN", "env-token-xyz")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("STATION_NAME")
		os.Unsetenv("SERVER_URL")
		os.Unsetenv("SERVER_AUTH_TOKEN")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := &Config{
		Station: StationConfig{
			Name: "Config Town",
		},
		Server: ServerConfig{
			URL:       "wss://config-server.com/ws",
			AuthToken: "config-token",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	cfg.OverrideFromEnv()

	if cfg.Station.Name != "Env Town" {
		t.Errorf("Station.Name = %v, want Env Town", cfg.Station.Name)
	}
	if cfg.Server.URL != "wss://env-server.com/ws" {
		t.Errorf("Server.URL = %v", cfg.Server.URL)
	}
	if cfg.Server.AuthToken != "env-token-xyz" {
		t.Errorf("Server.AuthToken = %v", cfg.Server.AuthToken)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func validFeederConfig() Config {
	return Config{
		Station: StationConfig{
			Name:         "Test Town",
			Latitude:     -33.5,
			Longitude:    151.2,
			ReadInterval: 2 * time.Second,
		},
		Server: ServerConfig{
			URL:       "wss://example.com/ws",
			AuthToken: "token123",
		},
		Buffer: BufferConfig{
			Size: 1000,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing station name", func(c *Config) { c.Station.Name = "" }, true},
		{"latitude out of range", func(c *Config) { c.Station.Latitude = 91.0 }, true},
		{"longitude out of range", func(c *Config) { c.Station.Longitude = -181.0 }, true},
		{"missing server URL", func(c *Config) { c.Server.URL = "" }, true},
		{"invalid server URL scheme", func(c *Config) { c.Server.URL = "http://example.com/ws" }, true},
		{"missing auth token", func(c *Config) { c.Server.AuthToken = "" }, true},
		{"buffer size too small", func(c *Config) { c.Buffer.Size = 5 }, true},
		{"read interval too short", func(c *Config) { c.Station.ReadInterval = 500 * time.Millisecond }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validFeederConfig()
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

func TestConfig_String_MasksToken(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			URL:       "wss://example.com/ws",
			AuthToken: "secret-token-12345",
		},
	}

	str := cfg.String()

	if strings.Contains(str, "secret-token-12345") {
		t.Error("String() should mask auth token")
	}
	if !strings.Contains(str, "secr****") {
		t.Error("String() should contain masked token")
	}
}
