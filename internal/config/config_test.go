// internal/config/config_test.go
package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.DisableCache)

	assert.Equal(t, 100*time.Millisecond, cfg.Driver.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Driver.StepTimeout)
	assert.Equal(t, 30*time.Second, cfg.Driver.BootTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Driver.RunTimeout)
	assert.Equal(t, 2*time.Second, cfg.Driver.DispatchGrace)
	assert.Equal(t, time.Minute, cfg.Driver.NavigationTimeout)

	assert.Equal(t, "verification", cfg.Artifacts.Dir)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("driver.step_timeout", "250ms")
	v.Set("driver.run_timeout", "90s")
	v.Set("browser.headless", false)
	v.Set("logger.level", "debug")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Driver.StepTimeout)
	assert.Equal(t, 90*time.Second, cfg.Driver.RunTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100*time.Millisecond, cfg.Driver.PollInterval)
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	for _, key := range []string{
		"driver.poll_interval",
		"driver.step_timeout",
		"driver.boot_timeout",
		"driver.run_timeout",
		"driver.dispatch_grace",
		"driver.navigation_timeout",
	} {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, "0s")
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadRejectsEmptyArtifactsDir(t *testing.T) {
	v := viper.New()
	v.Set("artifacts.dir", "")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifacts.dir")
}

func TestLoadExpandsHomeRelativePaths(t *testing.T) {
	v := viper.New()
	v.Set("artifacts.dir", "~/gauntlet-artifacts")
	v.Set("logger.log_file", "~/gauntlet.log")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(cfg.Artifacts.Dir, "~"))
	assert.True(t, strings.HasSuffix(cfg.Artifacts.Dir, "gauntlet-artifacts"))
	assert.False(t, strings.HasPrefix(cfg.Logger.LogFile, "~"))
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())
}
