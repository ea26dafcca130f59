// internal/driver/errors.go
package driver

import (
	"errors"
	"fmt"
)

// Category classifies a step failure for the run report. The four categories
// imply different remediation: a NotFound means the selector is wrong, a
// ReadinessTimeout means the render is slow or the element never settles, a
// DispatchFailed means the interaction itself broke, and an AssertionTimeout
// means the interaction fired but had no observable effect.
type Category string

const (
	CategoryNone             Category = ""
	CategoryNotFound         Category = "NotFound"
	CategoryReadinessTimeout Category = "ReadinessTimeout"
	CategoryDispatchFailed   Category = "DispatchFailed"
	CategoryAssertionTimeout Category = "AssertionTimeout"
)

// Sentinel errors for the failure taxonomy. Wrap them with context via
// fmt.Errorf("...: %w", ...) and classify with CategoryOf.
var (
	ErrNotFound         = errors.New("element not found")
	ErrAmbiguous        = errors.New("reference matched multiple elements")
	ErrReadinessTimeout = errors.New("element never became ready")
	ErrDispatchFailed   = errors.New("interaction dispatch failed")
	ErrAssertionTimeout = errors.New("expected outcome never observed")

	// ErrNotActionable is returned by Page.DispatchNative when actionability
	// checks fail. It is internal to the dispatch grace loop; once the grace
	// period is exhausted it surfaces wrapped in ErrDispatchFailed.
	ErrNotActionable = errors.New("element not actionable")
)

// CategoryOf maps an error to its failure category. Ambiguity beyond the
// disambiguation rule counts as NotFound: the selector was not specific
// enough, which is the same remediation.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAmbiguous):
		return CategoryNotFound
	case errors.Is(err, ErrReadinessTimeout):
		return CategoryReadinessTimeout
	case errors.Is(err, ErrDispatchFailed):
		return CategoryDispatchFailed
	case errors.Is(err, ErrAssertionTimeout):
		return CategoryAssertionTimeout
	default:
		return CategoryDispatchFailed
	}
}

// StepError attributes a failure to the logical element involved so the run
// report can name it without re-deriving context.
type StepError struct {
	Ref Reference
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
