// Package config loads the service configuration from a JSON file and
// applies defaults for unspecified fields.
package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config is the root configuration structure
type Config struct {
	App        AppConfig        `json:"app"`
	Serial     SerialConfig     `json:"serial"`
	Logging    LoggingConfig    `json:"logging"`
	SessionLog SessionLogConfig `json:"session_log"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

// AppConfig contains application metadata
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// SerialConfig holds the default line configuration offered to callers.
// The core session keeps no persisted state; these are the values the
// GUI and API pre-fill an open request with.
type SerialConfig struct {
	Device         string `json:"device"`
	BaudRate       int    `json:"baud_rate"`
	DataBits       int    `json:"data_bits"`
	StopBits       int    `json:"stop_bits"`
	Parity         string `json:"parity"`
	ReadTimeoutMs  int    `json:"read_timeout_ms"`
	WriteTimeoutMs int    `json:"write_timeout_ms"`
}

// LoggingConfig defines application logging settings
type LoggingConfig struct {
	Level      string `json:"level"`
	BasePath   string `json:"base_path"`
	Filename   string `json:"filename"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// SessionLogConfig defines the per-operation session log file
type SessionLogConfig struct {
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// MonitoringConfig defines the HTTP monitoring/API surface
type MonitoringConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when
// no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unspecified fields
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "RS485Console"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 9600
	}
	if c.Serial.DataBits == 0 {
		c.Serial.DataBits = 8
	}
	if c.Serial.StopBits == 0 {
		c.Serial.StopBits = 1
	}
	if c.Serial.Parity == "" {
		c.Serial.Parity = "none"
	}
	if c.Serial.ReadTimeoutMs == 0 {
		c.Serial.ReadTimeoutMs = 500
	}
	if c.Serial.WriteTimeoutMs == 0 {
		c.Serial.WriteTimeoutMs = 300
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "rs485console.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	if c.SessionLog.MaxSizeMB == 0 {
		c.SessionLog.MaxSizeMB = 10
	}
	if c.SessionLog.MaxBackups == 0 {
		c.SessionLog.MaxBackups = 3
	}

	if c.Monitoring.Listen == "" {
		c.Monitoring.Listen = "127.0.0.1:8000"
	}
}

// GetReadTimeout returns the default read timeout as a duration
func (c *SerialConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// GetWriteTimeout returns the default write timeout as a duration
func (c *SerialConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}
