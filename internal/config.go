package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/taxonomy"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Backend  BackendConfig     `yaml:"backend"`
	Cache    CacheConfig       `yaml:"cache"`
	Taxonomy TaxonomyConfig    `yaml:"taxonomy"`
	Seed     SeedConfig        `yaml:"seed"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Taxonomy.Validate(); err != nil {
		return fmt.Errorf("taxonomy: %w", err)
	}
	if err := c.Seed.Validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if c.Seed.Path != "" && c.Backend.Driver == backend.DriverPostgREST {
		return fmt.Errorf("seed: not supported with the %q backend", backend.DriverPostgREST)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// PublicURL is the site origin used in sitemap and share links.
	PublicURL    string        `yaml:"public_url"`
	HTTP         HTTPConfig    `yaml:"http"`
	FeedThrottle time.Duration `yaml:"feed_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PublicURL, validation.Required, is.URL),
		validation.Field(&c.FeedThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BackendConfig selects where lists and requests are stored.
//
// Driver is one of:
//   - "sqlite": DSN is a file path.
//   - "postgres": DSN is a pgx connection string.
//   - "postgrest": URL and APIKey address a hosted PostgREST endpoint.
type BackendConfig struct {
	Driver            string        `yaml:"driver"`
	DSN               string        `yaml:"dsn"`
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	rest := c.Driver == backend.DriverPostgREST
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(backend.DriverSQLite, backend.DriverPostgres, backend.DriverPostgREST)),
		validation.Field(&c.DSN, validation.When(!rest, validation.Required)),
		validation.Field(&c.URL, validation.When(rest, validation.Required, is.URL)),
		validation.Field(&c.APIKey, validation.When(rest, validation.Required)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// CacheConfig selects the taxonomy cache.
type CacheConfig struct {
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`
	// FetchTimeout bounds one backend load, independent of the caller.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(CacheMemory, CacheRedis)),
		validation.Field(&c.FetchTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Driver == CacheRedis {
		return c.Redis.Validate()
	}
	return nil
}

// RedisConfig holds the shared cache connection.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Validate validates the redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

// TaxonomyConfig overrides the per-list cache settings.
type TaxonomyConfig struct {
	Lists map[string]ListConfig `yaml:"lists"`
}

// ListConfig overrides one list kind. Zero values keep the default.
type ListConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	TopLevelOnly *bool         `yaml:"top_level_only"`
}

// Validate validates the taxonomy configuration.
func (c *TaxonomyConfig) Validate() error {
	for kind, l := range c.Lists {
		if kind == "" {
			return fmt.Errorf("lists: empty kind")
		}
		if l.TTL < 0 {
			return fmt.Errorf("lists: %s: ttl must not be negative", kind)
		}
	}
	return nil
}

// Options merges the overrides onto taxonomy.DefaultOptions.
func (c *TaxonomyConfig) Options() map[string]taxonomy.ListOptions {
	opts := taxonomy.DefaultOptions()
	for kind, l := range c.Lists {
		o := opts[kind]
		if l.TTL > 0 {
			o.TTL = l.TTL
		}
		if l.TopLevelOnly != nil {
			o.TopLevelOnly = *l.TopLevelOnly
		}
		opts[kind] = o
	}
	return opts
}

// SeedConfig points at the curated taxonomy file. An empty Path disables
// seeding.
type SeedConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the seed configuration.
func (c *SeedConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("watch requires a path")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:     slog.LevelInfo,
			PublicURL:    "http://localhost:8080",
			FeedThrottle: 2 * time.Second,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backend: BackendConfig{
			Driver:            backend.DriverSQLite,
			DSN:               "./vouch.db",
			RequestsPerSecond: 20,
			Timeout:           10 * time.Second,
		},
		Cache: CacheConfig{
			Driver:       CacheMemory,
			FetchTimeout: 10 * time.Second,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "vouch:",
			},
		},
	}
}
