package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Sequence SequenceConfig    `yaml:"sequence"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Sequence.Validate(); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

// StoreConfig holds the backing file and reconciler settings.
type StoreConfig struct {
	Path                string `yaml:"path"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	// WatchFS wakes the reconciler early on file system events.
	WatchFS bool `yaml:"watch_fs"`
}

// PollInterval returns the reconciler period.
func (c *StoreConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.PollIntervalSeconds, validation.Required, validation.Min(1)),
	)
}

// SequenceConfig holds the SQLite id counter location.
type SequenceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the sequence configuration.
func (c *SequenceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           8001,
				AllowedOrigins: []string{"http://localhost:5173"},
			},
		},
		Store: StoreConfig{
			Path:                "events.json",
			PollIntervalSeconds: 30,
			WatchFS:             true,
		},
		Sequence: SequenceConfig{
			Path: "events.seq.db",
		},
	}
}
