// internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Driver    DriverConfig    `mapstructure:"driver" yaml:"driver"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool           `mapstructure:"debug" yaml:"debug"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// DriverConfig tunes the interaction driver's waiting and dispatch behavior.
// Per-step timeouts in a scenario file override these defaults.
type DriverConfig struct {
	// PollInterval is the cadence at which readiness and assertion
	// predicates are re-evaluated.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// StepTimeout bounds a single readiness or assertion wait when the
	// scenario step does not specify its own.
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	// BootTimeout bounds the wait for the first interactive control after
	// navigation. First paint of the target application is the slowest
	// wait observed in practice, so it gets its own, longer bound.
	BootTimeout time.Duration `mapstructure:"boot_timeout" yaml:"boot_timeout"`
	// RunTimeout bounds the total wall-clock time of a scenario run,
	// independently of per-step timeouts.
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	// DispatchGrace is the short internal window a pointer dispatch gets
	// to pass its actionability checks before failing fast.
	DispatchGrace time.Duration `mapstructure:"dispatch_grace" yaml:"dispatch_grace"`
	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ArtifactsConfig controls where run artifacts (screenshots, reports) land.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gauntlet")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// Browser defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)

	// Driver defaults
	v.SetDefault("driver.poll_interval", "100ms")
	v.SetDefault("driver.step_timeout", "5s")
	v.SetDefault("driver.boot_timeout", "30s")
	v.SetDefault("driver.run_timeout", "5m")
	v.SetDefault("driver.dispatch_grace", "2s")
	v.SetDefault("driver.navigation_timeout", "60s")

	// Artifacts defaults
	v.SetDefault("artifacts.dir", "verification")
}

// Load unmarshals the configuration from the given viper instance, applies
// defaults for unset keys, expands home-relative paths and validates the
// result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	dir, err := homedir.Expand(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand artifacts dir: %w", err)
	}
	cfg.Artifacts.Dir = dir

	if cfg.Logger.LogFile != "" {
		lf, err := homedir.Expand(cfg.Logger.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand log file path: %w", err)
		}
		cfg.Logger.LogFile = lf
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfig returns a Config populated entirely from defaults.
// Primarily useful in tests and as a fallback.
func NewDefaultConfig() *Config {
	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate checks invariants that viper cannot express.
func (c *Config) Validate() error {
	d := c.Driver
	for _, check := range []struct {
		name string
		val  time.Duration
	}{
		{"driver.poll_interval", d.PollInterval},
		{"driver.step_timeout", d.StepTimeout},
		{"driver.boot_timeout", d.BootTimeout},
		{"driver.run_timeout", d.RunTimeout},
		{"driver.dispatch_grace", d.DispatchGrace},
		{"driver.navigation_timeout", d.NavigationTimeout},
	} {
		if check.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", check.name, check.val)
		}
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir must not be empty")
	}
	return nil
}
