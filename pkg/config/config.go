// Package config loads canvasflow settings.
//
// Settings are read from a TOML file (or YAML when the file name ends in
// .yaml or .yml). The file is located by $CANVASFLOW_CONFIG and defaults to
// ~/.config/canvasflow/config.toml; a missing default file is not an error.
// A few environment variables override file values:
//
//	CANVASFLOW_PROVIDER_ENDPOINT  provider.endpoint
//	CANVASFLOW_PROVIDER_MODEL     provider.model
//	CANVASFLOW_REDIS_ADDR         cache.redis.addr (and selects the redis backend)
//
// The provider API key is never stored in the file. provider.api_key_env
// names the environment variable that holds it.
//
// Example:
//
//	[provider]
//	endpoint = "https://assistant.example.com/v1/chat"
//	model = "canvas-1"
//	api_key_env = "CANVASFLOW_API_KEY"
//	timeout = "45s"
//
//	[placement]
//	strategy = "flow"
//	padding = 30
//
//	[cache]
//	backend = "file"
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/history"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// Environment variables read by [Load].
const (
	EnvConfig           = "CANVASFLOW_CONFIG"
	EnvProviderEndpoint = "CANVASFLOW_PROVIDER_ENDPOINT"
	EnvProviderModel    = "CANVASFLOW_PROVIDER_MODEL"
	EnvRedisAddr        = "CANVASFLOW_REDIS_ADDR"

	// DefaultAPIKeyEnv is used when provider.api_key_env is unset.
	DefaultAPIKeyEnv = "CANVASFLOW_API_KEY"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// =============================================================================
// Sections
// =============================================================================

// Config is the full configuration.
type Config struct {
	Provider  ProviderConfig  `toml:"provider" yaml:"provider"`
	Placement PlacementConfig `toml:"placement" yaml:"placement"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	History   HistoryConfig   `toml:"history" yaml:"history"`
	Viewport  ViewportConfig  `toml:"viewport" yaml:"viewport"`
}

// ProviderConfig selects the conversational provider.
type ProviderConfig struct {
	Endpoint  string        `toml:"endpoint" yaml:"endpoint"`
	Model     string        `toml:"model" yaml:"model"`
	APIKeyEnv string        `toml:"api_key_env" yaml:"api_key_env"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout"`
}

// APIKey returns the key from the environment variable named by APIKeyEnv.
func (p ProviderConfig) APIKey() string {
	name := p.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return os.Getenv(name)
}

// PlacementConfig holds placement defaults.
type PlacementConfig struct {
	Strategy        string  `toml:"strategy" yaml:"strategy"`
	Padding         float64 `toml:"padding" yaml:"padding"`
	NoteColor       string  `toml:"note_color" yaml:"note_color"`
	MaxRowWidth     float64 `toml:"max_row_width" yaml:"max_row_width"`
	MaxGridAttempts int     `toml:"max_grid_attempts" yaml:"max_grid_attempts"`
	MaxRings        int     `toml:"max_rings" yaml:"max_rings"`

	// Transcript draws chat bubbles for both sides of every turn.
	Transcript bool `toml:"transcript" yaml:"transcript"`
}

// Hints returns the synthesizer hints for these defaults.
func (p PlacementConfig) Hints() synth.Hints {
	return synth.Hints{
		Strategy:     placement.Strategy(p.Strategy),
		Padding:      p.Padding,
		AvoidOverlap: true,
		NoteColor:    p.NoteColor,
	}
}

// SolverOptions returns the solver limits set in the file.
func (p PlacementConfig) SolverOptions() []placement.Option {
	var opts []placement.Option
	if p.MaxRowWidth > 0 {
		opts = append(opts, placement.WithMaxRowWidth(p.MaxRowWidth))
	}
	if p.MaxGridAttempts > 0 {
		opts = append(opts, placement.WithMaxGridAttempts(p.MaxGridAttempts))
	}
	if p.MaxRings > 0 {
		opts = append(opts, placement.WithMaxRings(p.MaxRings))
	}
	return opts
}

// CacheConfig selects the reply cache backend.
type CacheConfig struct {
	Backend string        `toml:"backend" yaml:"backend"`
	Dir     string        `toml:"dir" yaml:"dir"`
	TTL     time.Duration `toml:"ttl" yaml:"ttl"`
	Redis   RedisConfig   `toml:"redis" yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HistoryConfig bounds the conversation context.
type HistoryConfig struct {
	Limit int    `toml:"limit" yaml:"limit"`
	Dir   string `toml:"dir" yaml:"dir"`
}

// ViewportConfig is the viewport assumed by commands that have no canvas.
type ViewportConfig struct {
	Width  float64 `toml:"width" yaml:"width"`
	Height float64 `toml:"height" yaml:"height"`
	Zoom   float64 `toml:"zoom" yaml:"zoom"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   60 * time.Second,
		},
		Placement: PlacementConfig{
			Strategy: string(placement.DefaultStrategy),
		},
		Cache: CacheConfig{
			Backend: BackendNone,
			TTL:     24 * time.Hour,
			Redis:   RedisConfig{Prefix: "canvasflow:"},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		History:  HistoryConfig{Limit: history.DefaultLimit},
		Viewport: ViewportConfig{Width: 1280, Height: 800, Zoom: 1},
	}
}

// DefaultPath returns ~/.config/canvasflow/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "canvasflow", "config.toml"), nil
}

// Load reads path, or the file named by $CANVASFLOW_CONFIG, or the default
// path, in that order. Only an explicitly named file must exist. Environment
// overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data in the format implied by name's extension onto the
// defaults and validates the result. Environment overrides are not applied.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(name, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(name string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(name))
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(name))
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvProviderEndpoint); v != "" {
		c.Provider.Endpoint = v
	}
	if v := getenv(EnvProviderModel); v != "" {
		c.Provider.Model = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = BackendRedis
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Provider.Endpoint != "" {
		if err := errors.ValidateURL(c.Provider.Endpoint); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "provider.endpoint")
		}
	}
	if c.Provider.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "provider.timeout cannot be negative")
	}
	if _, err := placement.ParseStrategy(c.Placement.Strategy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "placement.strategy")
	}
	if c.Placement.NoteColor != "" {
		if _, err := synth.NoteSwatch(c.Placement.NoteColor); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "placement.note_color")
		}
	}
	switch c.Cache.Backend {
	case "", BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid cache.backend: %q (must be one of: none, file, redis)", c.Cache.Backend)
	}
	if c.History.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "history.limit cannot be negative")
	}
	for name, v := range map[string]float64{"viewport.width": c.Viewport.Width, "viewport.height": c.Viewport.Height} {
		if err := errors.ValidateDimension(name, v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", name)
		}
	}
	return nil
}
