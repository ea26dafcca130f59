// internal/driver/dispatcher.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Strategy is the mechanism used to trigger a UI interaction. It is assigned
// per step at orchestration time, not inherent to the element: the same
// control can be clicked natively in one scenario and script-invoked in
// another, depending on how its surrounding layout behaves.
type Strategy string

const (
	// NativePointer simulates a pointer click with full actionability checks
	// (visible, stable, receives events, not obscured). Appropriate for
	// controls that are genuinely clickable with settled layout around them.
	NativePointer Strategy = "native_pointer"
	// ForcedNative simulates a pointer click bypassing the hit-test but
	// still requiring visibility. For controls that an overlay or animation
	// transiently intercepts while being logically actionable.
	ForcedNative Strategy = "forced_native"
	// ScriptInvoked triggers the element's activation handler directly at
	// the scripting layer, bypassing geometry entirely. For controls that
	// are reliably present in the accessibility tree but unreliable under
	// pointer-based dispatch.
	ScriptInvoked Strategy = "script_invoked"
)

// ParseStrategy converts the scenario-file spelling to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(s)); st {
	case NativePointer, ForcedNative, ScriptInvoked:
		return st, nil
	default:
		return "", fmt.Errorf("unknown dispatch strategy %q", s)
	}
}

// Dispatcher triggers a user interaction on a ready element using the
// strategy chosen by the scenario. A dispatch "succeeding" means the event
// fired; whether the application reacted is the assertion checker's business.
type Dispatcher struct {
	page   Page
	grace  time.Duration
	poll   time.Duration
	logger *zap.Logger
}

func NewDispatcher(page Page, grace, poll time.Duration, logger *zap.Logger) *Dispatcher {
	if grace <= 0 {
		grace = 2 * time.Second
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Dispatcher{page: page, grace: grace, poll: poll, logger: logger.Named("dispatcher")}
}

// Dispatch executes the interaction. Failures are wrapped in
// ErrDispatchFailed so the orchestrator can attribute the category.
func (d *Dispatcher) Dispatch(ctx context.Context, h Handle, strategy Strategy) error {
	d.logger.Debug("Dispatching interaction.",
		zap.String("selector", h.Selector),
		zap.String("strategy", string(strategy)))

	var err error
	switch strategy {
	case NativePointer:
		err = d.dispatchNative(ctx, h)
	case ForcedNative:
		err = d.dispatchForced(ctx, h)
	case ScriptInvoked:
		err = d.dispatchScript(ctx, h)
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrDispatchFailed, strategy)
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s dispatch on %s: %v", ErrDispatchFailed, strategy, h.Selector, err)
	}
	return nil
}

// dispatchNative retries the fully-checked pointer click within the grace
// window, then fails fast. The grace absorbs sub-second layout jitter without
// turning dispatch into a second readiness wait.
func (d *Dispatcher) dispatchNative(ctx context.Context, h Handle) error {
	graceCtx, cancel := context.WithTimeout(ctx, d.grace)
	defer cancel()

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		err := d.page.DispatchNative(graceCtx, h)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotActionable) {
			return err
		}

		select {
		case <-graceCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("not actionable within %v grace: %w", d.grace, err)
		case <-ticker.C:
		}
	}
}

// dispatchForced still requires visibility; a click on an invisible control
// is a scenario bug, not a timing problem.
func (d *Dispatcher) dispatchForced(ctx context.Context, h Handle) error {
	obs, err := d.page.Observe(ctx, h)
	if err != nil {
		return err
	}
	if !obs.Attached || !obs.Visible {
		return fmt.Errorf("forced dispatch requires a visible element (attached=%v visible=%v)",
			obs.Attached, obs.Visible)
	}
	return d.page.DispatchForced(ctx, h)
}

// dispatchScript only needs attachment; full visual occlusion is fine.
func (d *Dispatcher) dispatchScript(ctx context.Context, h Handle) error {
	obs, err := d.page.Observe(ctx, h)
	if err != nil {
		return err
	}
	if !obs.Attached {
		return fmt.Errorf("script dispatch requires an attached element")
	}
	return d.page.InvokeScript(ctx, h)
}
