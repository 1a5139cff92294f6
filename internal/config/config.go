// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Device   DeviceConfig  `yaml:"device"`
	Read     ReadConfig    `yaml:"read"`
	Poll     PollConfig    `yaml:"poll"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Path string `yaml:"path"`
	Baud int    `yaml:"baud"` // 0 => osp3.BaudDefault
}

// ---- READ ----

type ReadConfig struct {
	// nil => the tool's own default; 0 => block
	TimeoutMs *int `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	Count      int  `yaml:"count"` // 0 => unlimited
	NoParse    bool `yaml:"no_parse"`
	NoChecksum bool `yaml:"no_checksum"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty => disabled
}

// DefaultPath is where the device usually appears.
func DefaultPath() string {
	if runtime.GOOS == "darwin" {
		return "/dev/tty.usbserial-210"
	}
	return "/dev/ttyUSB0"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads a YAML file. An empty path yields Default().
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Device.Path == "" {
		c.Device.Path = DefaultPath()
	}
	if c.Device.Baud == 0 {
		c.Device.Baud = osp3.BaudDefault
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Timeout returns the configured read timeout, or fallback when unset.
func (c *Config) Timeout(fallback time.Duration) time.Duration {
	if c.Read.TimeoutMs == nil {
		return fallback
	}
	return time.Duration(*c.Read.TimeoutMs) * time.Millisecond
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
