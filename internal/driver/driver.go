// internal/driver/driver.go
// Package driver implements the UI interaction pipeline: locate an element,
// wait for it to become ready, dispatch an interaction with a chosen
// strategy, and assert the resulting state transition. The scenario package
// sequences these against a Page; no component here holds cross-step state.
package driver

import (
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/config"
)

// Driver bundles the four pipeline components over one Page.
type Driver struct {
	Locator    *Locator
	Waiter     *Waiter
	Dispatcher *Dispatcher
	Checker    *Checker
}

// New wires the pipeline against the given page using the configured polling
// cadence and dispatch grace.
func New(page Page, cfg config.DriverConfig, logger *zap.Logger) *Driver {
	locator := NewLocator(page, logger)
	return &Driver{
		Locator:    locator,
		Waiter:     NewWaiter(locator, page, cfg.PollInterval, logger),
		Dispatcher: NewDispatcher(page, cfg.DispatchGrace, cfg.PollInterval, logger),
		Checker:    NewChecker(locator, page, cfg.PollInterval, logger),
	}
}
