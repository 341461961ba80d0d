// Package cli holds the command implementations behind cmd/graff.
package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/graff"
	"github.com/aretw0/graff/internal/config"
	"github.com/aretw0/graff/internal/logging"
)

// Flags are the command-line overrides. Zero values leave the file and
// environment settings alone.
type Flags struct {
	ConfigPath string
	Endpoint   string
	Timeout    time.Duration
	LogLevel   string
	LogFormat  string
	Robot      string
	Session    string
	Store      string
}

// Settings is the resolved configuration plus the logger built from it.
type Settings struct {
	Config config.Config
	Logger *slog.Logger
}

// Resolve applies defaults, then the config file, then GRAFF_* variables,
// then flags.
func Resolve(f Flags) (*Settings, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.Build(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return &Settings{Config: cfg, Logger: logger}, nil
}

func applyFlags(cfg *config.Config, f Flags) {
	if f.Endpoint != "" {
		cfg.Endpoint.Address = f.Endpoint
	}
	if f.Timeout > 0 {
		cfg.Endpoint.Timeout = f.Timeout
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if f.Robot != "" {
		cfg.Robot.Name = f.Robot
	}
	if f.Session != "" {
		cfg.Session = f.Session
	}
	if f.Store != "" {
		cfg.Store.Kind = f.Store
	}
}

// Dial opens a client for the configured endpoint, robot and session,
// mirroring into storage.
func (s *Settings) Dial(storage *Storage, opts ...graff.Option) (*graff.Client, error) {
	cfg := s.Config
	base := []graff.Option{
		graff.WithTimeout(cfg.Endpoint.Timeout),
		graff.WithLogger(s.Logger),
		graff.WithRobot(cfg.Robot.Name, cfg.Robot.Description),
		graff.WithSession(cfg.Session),
	}
	if storage != nil {
		base = append(base, graff.WithStore(storage.Store))
		if storage.Locker != nil {
			base = append(base, graff.WithLocker(storage.Locker))
		}
	}
	client, err := graff.Dial(cfg.Endpoint.Address, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint.Address, err)
	}
	return client, nil
}
