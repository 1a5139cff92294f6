// Package cli holds what osp3-poll and osp3-dump share: common flags,
// logger setup and opening the device.
package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"github.com/luhtfiimanal/go-osp3/internal/config"
)

// StdinPath selects standard input instead of a device.
const StdinPath = "-"

// Flags are the options both tools accept. Values given on the command
// line override the configuration file.
type Flags struct {
	Config    string
	Path      string
	Baud      int
	TimeoutMs int
	LogLevel  string

	fs *flag.FlagSet
}

// Register adds the common flags to fs. defaultTimeout is only shown in the
// usage text; an unset -t leaves the configuration value alone.
func (f *Flags) Register(fs *flag.FlagSet, defaultTimeout time.Duration) {
	f.fs = fs
	fs.StringVar(&f.Config, "config", "", "YAML configuration file")
	pathUsage := fmt.Sprintf("Device path, or %q for stdin (default: %s)", StdinPath, config.DefaultPath())
	fs.StringVar(&f.Path, "p", "", pathUsage)
	fs.StringVar(&f.Path, "path", "", pathUsage)
	baudUsage := fmt.Sprintf("Device baud rate (default: %d)", osp3.BaudDefault)
	fs.IntVar(&f.Baud, "b", 0, baudUsage)
	fs.IntVar(&f.Baud, "baud", 0, baudUsage)
	timeoutUsage := fmt.Sprintf("Read timeout in milliseconds, 0 to block (default: %d)", defaultTimeout.Milliseconds())
	fs.IntVar(&f.TimeoutMs, "t", 0, timeoutUsage)
	fs.IntVar(&f.TimeoutMs, "timeout", 0, timeoutUsage)
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default: info)")
}

// Load reads the configuration file, if any, and applies the flags that
// were set on the command line.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(f.Config)
	if err != nil {
		return nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "p", "path":
			cfg.Device.Path = f.Path
		case "b", "baud":
			cfg.Device.Baud = f.Baud
		case "t", "timeout":
			ms := f.TimeoutMs
			cfg.Read.TimeoutMs = &ms
		case "log-level":
			cfg.LogLevel = f.LogLevel
		}
	})
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Visited reports whether the named flag was set on the command line.
func (f *Flags) Visited(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// NewLogger returns a text logger on stderr at the configured level.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// Open opens the configured device, or wraps stdin for StdinPath.
func Open(cfg *config.Config) (*osp3.Conn, error) {
	if cfg.Device.Path == StdinPath {
		p, err := osp3.NewFilePort(os.Stdin)
		if err != nil {
			return nil, err
		}
		return osp3.NewConn(p), nil
	}
	return osp3.Open(osp3.Config{Device: cfg.Device.Path, BaudRate: cfg.Device.Baud})
}
