// Package config loads and validates the receiver daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete daemon configuration.
type Config struct {
	Receiver ReceiverConfig `yaml:"receiver"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ReceiverConfig contains GPIO and sampling configuration.
type ReceiverConfig struct {
	Chip           string `yaml:"chip"`
	Pin            int    `yaml:"pin"`
	Invert         bool   `yaml:"invert"`
	SamplePeriodMs int    `yaml:"sample_period_ms"`
}

// MQTTConfig contains broker configuration.
type MQTTConfig struct {
	Broker           string `yaml:"broker"`
	ClientID         string `yaml:"client_id"`
	HeartbeatSeconds int    `yaml:"heartbeat_seconds"`
}

// HTTPConfig contains status server configuration.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file or flags override it.
// The decoder's pulse windows assume the 10ms sample period.
func Default() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			Chip:           "gpiochip0",
			Pin:            4,
			SamplePeriodMs: 10,
		},
		MQTT: MQTTConfig{
			Broker:           "tcp://localhost:1883",
			ClientID:         "dcf77-receiver",
			HeartbeatSeconds: 900,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    ":8080",
		},
	}
}

// Load reads the configuration file at path, overlaying it on the defaults.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.Receiver.Validate(); err != nil {
		return fmt.Errorf("receiver config: %w", err)
	}

	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	return nil
}

// Validate validates receiver configuration.
func (r *ReceiverConfig) Validate() error {
	if r.Chip == "" {
		return fmt.Errorf("chip cannot be empty")
	}

	if r.Pin < 0 {
		return fmt.Errorf("pin cannot be negative, got %d", r.Pin)
	}

	if r.SamplePeriodMs < 1 || r.SamplePeriodMs > 100 {
		return fmt.Errorf("sample_period_ms must be between 1 and 100, got %d", r.SamplePeriodMs)
	}

	return nil
}

// Validate validates MQTT configuration.
func (m *MQTTConfig) Validate() error {
	if m.Broker == "" {
		return fmt.Errorf("broker cannot be empty")
	}

	if m.ClientID == "" {
		return fmt.Errorf("client_id cannot be empty")
	}

	if m.HeartbeatSeconds < 0 {
		return fmt.Errorf("heartbeat_seconds cannot be negative, got %d", m.HeartbeatSeconds)
	}

	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Enabled && h.Addr == "" {
		return fmt.Errorf("addr cannot be empty when http is enabled")
	}

	return nil
}

// SamplePeriod returns the sample period as a time.Duration.
func (r *ReceiverConfig) SamplePeriod() time.Duration {
	return time.Duration(r.SamplePeriodMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat interval as a time.Duration.
// Zero disables heartbeats.
func (m *MQTTConfig) HeartbeatInterval() time.Duration {
	return time.Duration(m.HeartbeatSeconds) * time.Second
}
