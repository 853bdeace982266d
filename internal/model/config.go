package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppSection holds product-level settings.
type AppSection struct {
	// Name is shown in headers and window titles. It must not be empty.
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
}

// AuthConfig holds the connection settings for the authentication provider.
type AuthConfig struct {
	// URL is the project URL of the provider (e.g., https://xyz.supabase.co).
	URL string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`

	// AnonKey is the public API key. It may be left empty here and stored
	// in the system keyring instead.
	AnonKey string `mapstructure:"anon_key" yaml:"anon_key"`

	// CallbackAddr is the local address the email-link listener binds to.
	CallbackAddr string `mapstructure:"callback_addr" yaml:"callback_addr" validate:"required,hostname_port"`

	// SessionCheckSec is how often (in seconds) the session is re-validated.
	SessionCheckSec int `mapstructure:"session_check_sec" yaml:"session_check_sec" validate:"gte=0"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme   string `mapstructure:"theme" yaml:"theme" validate:"required"`
	Light   bool   `mapstructure:"light" yaml:"light"`
	Clock24 bool   `mapstructure:"clock_24h" yaml:"clock_24h"`
}

// ToastConfig holds notification queue settings.
type ToastConfig struct {
	DurationMS int `mapstructure:"duration_ms" yaml:"duration_ms" validate:"gte=1"`
	MaxVisible int `mapstructure:"max_visible" yaml:"max_visible" validate:"gte=1,lte=20"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	App     AppSection    `mapstructure:"app" yaml:"app"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Toast   ToastConfig   `mapstructure:"toast" yaml:"toast"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ErrAuthNotConfigured is returned when an auth action runs without a
// provider URL and key.
var ErrAuthNotConfigured = errors.New("authentication provider is not configured")

// AuthConfigured reports whether both the provider URL and key are known.
func (c *AppConfig) AuthConfigured() bool {
	return c.Auth.URL != "" && c.Auth.AnonKey != ""
}

// CallbackURL returns the local URL the provider should redirect to for
// the given path (e.g., "/auth/callback").
func (c *AppConfig) CallbackURL(path string) string {
	return "http://" + c.Auth.CallbackAddr + path
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/gtdxp/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "gtdxp", "config.yaml")
}

// DefaultStateDir returns the directory for the database and log file.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gtdxp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "gtdxp")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		App: AppSection{Name: "GTDXP-OS"},
		Auth: AuthConfig{
			CallbackAddr:    "127.0.0.1:54321",
			SessionCheckSec: 300,
		},
		Display: DisplayConfig{
			Theme: "cyberpunk",
		},
		Toast: ToastConfig{
			DurationMS: 3000,
			MaxVisible: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Path:   filepath.Join(DefaultStateDir(), "gtdxp.log"),
		},
	}
}

// newViper builds a viper instance with defaults and GTDXP_* environment
// overrides (e.g., GTDXP_AUTH_URL).
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GTDXP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so that AutomaticEnv applies on Unmarshal.
	d := defaultAppConfig()
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("auth.url", d.Auth.URL)
	v.SetDefault("auth.anon_key", d.Auth.AnonKey)
	v.SetDefault("auth.callback_addr", d.Auth.CallbackAddr)
	v.SetDefault("auth.session_check_sec", d.Auth.SessionCheckSec)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.light", d.Display.Light)
	v.SetDefault("display.clock_24h", d.Display.Clock24)
	v.SetDefault("toast.duration_ms", d.Toast.DurationMS)
	v.SetDefault("toast.max_visible", d.Toast.MaxVisible)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.path", d.Log.Path)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults (plus environment overrides).
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.App.Name = strings.TrimSpace(cfg.App.Name)
	cfg.Auth.URL = strings.TrimRight(strings.TrimSpace(cfg.Auth.URL), "/")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The anon key is left out; it
// belongs in the keyring or the environment.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("app.name", cfg.App.Name)
	v.Set("auth.url", cfg.Auth.URL)
	v.Set("auth.callback_addr", cfg.Auth.CallbackAddr)
	v.Set("auth.session_check_sec", cfg.Auth.SessionCheckSec)
	v.Set("display.theme", cfg.Display.Theme)
	v.Set("display.light", cfg.Display.Light)
	v.Set("display.clock_24h", cfg.Display.Clock24)
	v.Set("toast.duration_ms", cfg.Toast.DurationMS)
	v.Set("toast.max_visible", cfg.Toast.MaxVisible)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.path", cfg.Log.Path)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
