// Package config loads CLI settings from a file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Environment variables applied on top of the file.
const (
	EnvEndpoint  = "GRAFF_ENDPOINT"
	EnvTimeout   = "GRAFF_TIMEOUT"
	EnvRobot     = "GRAFF_ROBOT"
	EnvSession   = "GRAFF_SESSION"
	EnvLogLevel  = "GRAFF_LOG_LEVEL"
	EnvStore     = "GRAFF_STORE"
	EnvRedisAddr = "GRAFF_REDIS_ADDR"
)

type Endpoint struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Robot struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type Store struct {
	Kind   string `mapstructure:"kind"`
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	Redis  Redis  `mapstructure:"redis"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Serve struct {
	ZMQ  string `mapstructure:"zmq"`
	HTTP string `mapstructure:"http"`
	Mock bool   `mapstructure:"mock"`
}

// Config is everything the CLI can be told.
type Config struct {
	Endpoint Endpoint `mapstructure:"endpoint"`
	Robot    Robot    `mapstructure:"robot"`
	Session  string   `mapstructure:"session"`
	Store    Store    `mapstructure:"store"`
	Log      Log      `mapstructure:"log"`
	Serve    Serve    `mapstructure:"serve"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Endpoint: Endpoint{Address: "tcp://127.0.0.1:5555", Timeout: 10 * time.Second},
		Robot:    Robot{Name: "robot"},
		Session:  "session",
		Store:    Store{Kind: StoreFile, Path: ".graff/sessions", Format: "json"},
		Log:      Log{Level: "info", Format: "text"},
		Serve:    Serve{ZMQ: "tcp://127.0.0.1:5555", HTTP: "127.0.0.1:8080"},
	}
}

// Load reads path over the defaults and then applies the environment.
// A missing file is not an error. The extension picks the parser: .toml,
// .json, anything else is YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		if raw != nil {
			if err := decode(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ApplyEnv overrides cfg with the GRAFF_* variables lookup reports.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		cfg.Endpoint.Address = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Endpoint.Timeout = d
	}
	if v, ok := lookup(EnvRobot); ok && v != "" {
		cfg.Robot.Name = v
	}
	if v, ok := lookup(EnvSession); ok && v != "" {
		cfg.Session = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		cfg.Store.Kind = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Store.Redis.Addr = v
	}
	return cfg.Validate()
}

// Validate reports settings no command can work with.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == StoreRedis && c.Store.Redis.Addr == "" {
		return errors.New("redis store needs an address")
	}
	if c.Endpoint.Timeout < 0 {
		return errors.New("endpoint timeout must not be negative")
	}
	return nil
}
