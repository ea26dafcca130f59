// internal/driver/checker.go
package driver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Assertion is the expected observable consequence of an interaction: either
// a new element becomes visible, or an element's text changes from a baseline
// captured before the interaction. Exactly one of Appear/TextChange is set.
type Assertion struct {
	Appear     *Reference
	TextChange *Reference
	Timeout    time.Duration
}

// Checker waits for and asserts the post-interaction state, using the same
// polling discipline as the readiness waiter. Only the checker can tell a
// fired-but-ineffective dispatch from a successful step.
type Checker struct {
	locator *Locator
	page    Page
	poll    time.Duration
	logger  *zap.Logger
}

func NewChecker(locator *Locator, page Page, poll time.Duration, logger *zap.Logger) *Checker {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Checker{locator: locator, page: page, poll: poll, logger: logger.Named("checker")}
}

// Baseline captures the current text of a TextChange target. Call before
// dispatching, otherwise "changed" has nothing to change from.
func (c *Checker) Baseline(ctx context.Context, ref Reference) (string, error) {
	h, err := c.locator.Locate(ctx, ref)
	if err != nil {
		return "", err
	}
	text, err := c.page.Text(ctx, h)
	if err != nil {
		return "", fmt.Errorf("baseline text for %s: %w", ref, err)
	}
	return text, nil
}

// AssertOutcome polls until the assertion holds or the timeout expires.
// Timeout surfaces as ErrAssertionTimeout: the dispatch fired but the
// application never showed the expected consequence.
func (c *Checker) AssertOutcome(ctx context.Context, a Assertion, baseline string) error {
	if a.Appear == nil && a.TextChange == nil {
		return fmt.Errorf("assertion has no expected outcome")
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("assertion timeout must be positive, got %v", a.Timeout)
	}

	checkCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	ref := a.Appear
	if ref == nil {
		ref = a.TextChange
	}

	for {
		if ok := c.satisfied(checkCtx, a, baseline); ok {
			return nil
		}

		select {
		case <-checkCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &StepError{Ref: *ref, Err: fmt.Errorf(
				"%w: within %v", ErrAssertionTimeout, a.Timeout)}
		case <-ticker.C:
		}
	}
}

func (c *Checker) satisfied(ctx context.Context, a Assertion, baseline string) bool {
	if a.Appear != nil {
		h, err := c.locator.Locate(ctx, *a.Appear)
		if err != nil {
			return false
		}
		obs, err := c.page.Observe(ctx, h)
		return err == nil && obs.Attached && obs.Visible
	}

	h, err := c.locator.Locate(ctx, *a.TextChange)
	if err != nil {
		return false
	}
	text, err := c.page.Text(ctx, h)
	return err == nil && text != baseline
}
