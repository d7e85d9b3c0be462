package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkpeek/internal/link"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	SSE       SSEConfig         `yaml:"sse"`
	Reconcile ReconcileConfig   `yaml:"reconcile"`
	Drag      DragConfig        `yaml:"drag"`
	Resolver  ResolverConfig    `yaml:"resolver"`
}

// Validate validates every section, stopping at the first failure.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"vault", &c.Vault},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"sse", &c.SSE},
		{"reconcile", &c.Reconcile},
		{"drag", &c.Drag},
		{"resolver", &c.Resolver},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
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
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// VaultConfig locates the note vault. Ignore lists folders (relative to Path)
// that links must never resolve into, such as templates or an archive.
type VaultConfig struct {
	Path          string        `yaml:"path"`
	Ignore        []string      `yaml:"ignore"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0)), validation.Max(5*time.Second)),
	)
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

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SSEConfig tunes the command stream.
type SSEConfig struct {
	StaleThrottle time.Duration `yaml:"stale_throttle"`
	Keepalive     time.Duration `yaml:"keepalive"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.Keepalive, validation.Min(time.Second)),
	)
}

// ReconcileConfig controls duplicate-view reconciliation.
type ReconcileConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the reconcile configuration.
func (c *ReconcileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0)), validation.Max(10*time.Second)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// DragConfig holds the drag-to-open gesture settings. A zero threshold opens
// on every drop that followed a drag start.
type DragConfig struct {
	Threshold time.Duration `yaml:"threshold"`
}

// Validate validates the drag configuration.
func (c *DragConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Min(time.Duration(0))),
	)
}

// ResolverConfig holds extra link extraction rules, tried before the
// built-in ones.
type ResolverConfig struct {
	Rules []link.RuleConfig `yaml:"rules"`
}

// Validate validates the resolver configuration by building its rule table.
func (c *ResolverConfig) Validate() error {
	_, err := c.Table()
	return err
}

// Table builds the resolver's rule table.
func (c *ResolverConfig) Table() (link.RuleTable, error) {
	return link.BuildRules(c.Rules)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Vault: VaultConfig{
			Path:          "./vault",
			WatchDebounce: 200 * time.Millisecond,
		},
		SQLite: SQLiteConfig{
			Path: "./linkpeek.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		SSE: SSEConfig{
			StaleThrottle: 2 * time.Second,
			Keepalive:     15 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Enabled:  true,
			Debounce: 100 * time.Millisecond,
			Timeout:  5 * time.Second,
		},
		Drag: DragConfig{
			Threshold: 500 * time.Millisecond,
		},
	}
}
