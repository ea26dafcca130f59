// internal/driver/locator.go
package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Locator resolves a logical Reference to exactly one concrete Handle against
// the live DOM at call time. It has no side effects beyond querying and is
// safe to call repeatedly across re-renders.
type Locator struct {
	page   Page
	logger *zap.Logger
}

func NewLocator(page Page, logger *zap.Logger) *Locator {
	return &Locator{page: page, logger: logger.Named("locator")}
}

// Locate queries the page for the reference's candidates and applies the
// disambiguation rule when more than one matches:
//
//  1. Prefer the candidate whose accessible name the pattern matches as the
//     whole name, not a substring. The target application reuses words like
//     "SANTA" across unrelated controls, so substring hits are common.
//  2. If that still leaves several, take the first in document order and log
//     a warning. That pick is a flagged ambiguity, not an endorsement; the
//     durable fix is unique accessible names in the target application.
func (l *Locator) Locate(ctx context.Context, ref Reference) (Handle, error) {
	var (
		candidates []Handle
		err        error
	)
	if ref.Role != "" {
		candidates, err = l.page.QueryByRole(ctx, ref.Role, ref.Name)
	} else {
		candidates, err = l.page.QueryByText(ctx, ref.Text)
	}
	if err != nil {
		return Handle{}, fmt.Errorf("query for %s failed: %w", ref, err)
	}

	switch len(candidates) {
	case 0:
		return Handle{}, &StepError{Ref: ref, Err: fmt.Errorf("%w: no rendered candidate", ErrNotFound)}
	case 1:
		return candidates[0], nil
	}

	if ref.Name != nil {
		var whole []Handle
		for _, c := range candidates {
			if m := ref.Name.FindStringIndex(c.Name); m != nil && m[0] == 0 && m[1] == len(c.Name) {
				whole = append(whole, c)
			}
		}
		if len(whole) == 1 {
			return whole[0], nil
		}
		if len(whole) > 1 {
			candidates = whole
		}
	}

	l.logger.Warn("Reference is ambiguous; selecting first candidate in document order.",
		zap.Stringer("ref", ref),
		zap.Int("candidates", len(candidates)),
		zap.String("selected", candidates[0].Name))
	return candidates[0], nil
}
