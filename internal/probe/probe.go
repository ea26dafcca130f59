// internal/probe/probe.go
// Package probe implements the standalone focus-state verification utility: a
// degenerate scenario that navigates, waits for the start marker, focuses the
// target control and captures a screenshot. It is best-effort by design -
// any failure becomes a single diagnostic on the result, never a crash of the
// host process.
package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
	"github.com/frostpath/gauntlet/internal/scenario"
)

// Definition is the data form of a focus probe.
type Definition struct {
	Name        string              `yaml:"name"`
	URL         string              `yaml:"url"`
	StartMarker string              `yaml:"start_marker"`
	Target      scenario.TargetSpec `yaml:"target"`
	Screenshot  string              `yaml:"screenshot"`
	BootTimeout scenario.Duration   `yaml:"boot_timeout,omitempty"`
}

// Load reads and validates a probe definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe file: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse probe: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("probe name must not be empty")
	}
	if d.URL == "" {
		return fmt.Errorf("probe %q: url must not be empty", d.Name)
	}
	if d.StartMarker == "" {
		return fmt.Errorf("probe %q: start_marker must not be empty", d.Name)
	}
	if d.Screenshot == "" {
		return fmt.Errorf("probe %q: screenshot path must not be empty", d.Name)
	}
	if _, err := d.Target.Reference(); err != nil {
		return fmt.Errorf("probe %q: %w", d.Name, err)
	}
	return nil
}

// Result is the probe's single-line-diagnostic outcome.
type Result struct {
	Probe      string `json:"probe"`
	Focused    bool   `json:"focused"`
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Run executes the probe. It never returns an error and never panics the
// host: anything that goes wrong is reported on the Result.
func Run(ctx context.Context, drv *driver.Driver, page driver.Page, cfg config.DriverConfig, def *Definition, logger *zap.Logger) (res Result) {
	log := logger.Named("probe")
	res = Result{Probe: def.Name}

	defer func() {
		if r := recover(); r != nil {
			res.Error = fmt.Sprintf("probe panicked: %v", r)
			log.Error("Probe panicked.", zap.Any("panic", r))
		}
	}()

	bootTimeout := time.Duration(def.BootTimeout)
	if bootTimeout <= 0 {
		bootTimeout = cfg.BootTimeout
	}

	if err := run(ctx, drv, page, cfg, def, bootTimeout, &res); err != nil {
		res.Error = err.Error()
		log.Warn("Probe failed.", zap.String("probe", def.Name), zap.Error(err))
		return res
	}

	log.Info("Probe succeeded.",
		zap.String("probe", def.Name),
		zap.String("screenshot", res.Screenshot))
	return res
}

func run(ctx context.Context, drv *driver.Driver, page driver.Page, cfg config.DriverConfig, def *Definition, bootTimeout time.Duration, res *Result) error {
	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	defer cancel()
	if err := page.Navigate(navCtx, def.URL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Wait for the start screen. First paint is the slowest wait in the
	// whole harness, hence the boot bound.
	marker, err := driver.ByText(def.StartMarker)
	if err != nil {
		return err
	}
	if _, err := drv.Waiter.WaitReady(ctx, marker, driver.ReadinessSpec{
		Predicates: []driver.Predicate{driver.Visible},
		Timeout:    bootTimeout,
	}); err != nil {
		return fmt.Errorf("start marker never appeared: %w", err)
	}

	ref, err := def.Target.Reference()
	if err != nil {
		return err
	}
	handle, err := drv.Waiter.WaitReady(ctx, ref, driver.ReadinessSpec{
		Predicates: []driver.Predicate{driver.Visible, driver.Enabled},
		Timeout:    cfg.StepTimeout,
	})
	if err != nil {
		return fmt.Errorf("target never became focusable: %w", err)
	}

	if err := page.Focus(ctx, handle); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	res.Focused = true

	if err := page.Screenshot(ctx, def.Screenshot); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	res.Screenshot = def.Screenshot
	return nil
}
