package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gobwas/glob"

	"github.com/starford/notebase/internal/filterstore"
)

// Client backends.
const (
	BackendLive = "live"
	BackendMock = "mock"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Client  ClientConfig      `yaml:"client"`
	Cache   CacheConfig       `yaml:"cache"`
	Filters FiltersConfig     `yaml:"filters"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
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
	Port int `yaml:"port"`
	// EventsThrottle bounds how often lists.stale is sent to SSE clients.
	EventsThrottle time.Duration `yaml:"events_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.EventsThrottle, validation.Min(time.Duration(0))),
	)
}

// VaultConfig holds the path to the Markdown vault directory and the glob
// patterns of vault paths that are never indexed.
type VaultConfig struct {
	Path    string   `yaml:"path"`
	Exclude []string `yaml:"exclude"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Exclude, validation.Each(validation.Required, validation.By(validGlob))),
	)
}

func validGlob(value any) error {
	pattern, _ := value.(string)
	if _, err := glob.Compile(pattern, '/'); err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds the content store superuser.
//
// An empty Email disables authentication, suitable for local dev. Otherwise
// clients log in with Email and Password and receive a session token that
// expires after TokenTTL.
type AuthConfig struct {
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.TokenTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Email != "" && c.Password == "" {
		return fmt.Errorf("auth: email is set but password is empty")
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Email != ""
}

// ClientConfig selects the content client used by the CLI and MCP commands.
type ClientConfig struct {
	Backend  string        `yaml:"backend"`
	BaseURL  string        `yaml:"base_url"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendLive
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendLive, BackendMock)),
		validation.Field(&c.BaseURL,
			validation.When(c.Backend == BackendLive, validation.Required, is.RequestURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// CacheConfig tunes the client query cache.
type CacheConfig struct {
	StaleTime time.Duration `yaml:"stale_time"`
	GCTime    time.Duration `yaml:"gc_time"`
	Debounce  time.Duration `yaml:"debounce"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleTime, validation.Min(time.Duration(0))),
		validation.Field(&c.GCTime, validation.Min(c.StaleTime)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// FiltersConfig locates the persisted filter state.
type FiltersConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           8080,
				EventsThrottle: 2 * time.Second,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./notebase.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Client: ClientConfig{
			Backend: BackendLive,
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			StaleTime: 5 * time.Minute,
			GCTime:    10 * time.Minute,
			Debounce:  300 * time.Millisecond,
		},
		Filters: FiltersConfig{
			Path: filterstore.DefaultPath(),
		},
	}
}
