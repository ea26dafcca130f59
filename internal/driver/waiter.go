// internal/driver/waiter.go
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Predicate names one readiness condition an element must satisfy before an
// interaction is safe to dispatch.
type Predicate string

const (
	// Attached: the node exists in the document.
	Attached Predicate = "attached"
	// Visible: the node has non-empty geometry and is not hidden.
	Visible Predicate = "visible"
	// Stable: the node's bounding box is unchanged across two consecutive
	// observations. Guards against interacting mid-animation.
	Stable Predicate = "stable"
	// Enabled: the node is not disabled.
	Enabled Predicate = "enabled"
)

// ParsePredicate converts the scenario-file spelling to a Predicate.
func ParsePredicate(s string) (Predicate, error) {
	switch p := Predicate(strings.ToLower(s)); p {
	case Attached, Visible, Stable, Enabled:
		return p, nil
	default:
		return "", fmt.Errorf("unknown readiness predicate %q", s)
	}
}

// ReadinessSpec is the joint readiness requirement for one step. All listed
// predicates must hold simultaneously within the timeout.
type ReadinessSpec struct {
	Predicates []Predicate
	Timeout    time.Duration
}

// Waiter blocks cooperatively until an element satisfies a ReadinessSpec. It
// re-invokes the locator on every poll because the target may not exist yet,
// may be hidden behind an overlay, or may disappear again before settling.
type Waiter struct {
	locator *Locator
	page    Page
	poll    time.Duration
	logger  *zap.Logger
}

func NewWaiter(locator *Locator, page Page, poll time.Duration, logger *zap.Logger) *Waiter {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Waiter{locator: locator, page: page, poll: poll, logger: logger.Named("waiter")}
}

// WaitReady polls until the reference resolves to an element satisfying every
// predicate in spec, returning the ready handle. On timeout the error
// distinguishes "never located" (wrong selector) from "located but never
// satisfied" (slow or unsettled render), since the two imply different fixes.
func (w *Waiter) WaitReady(ctx context.Context, ref Reference, spec ReadinessSpec) (Handle, error) {
	if spec.Timeout <= 0 {
		return Handle{}, fmt.Errorf("readiness timeout must be positive, got %v", spec.Timeout)
	}

	waitCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	var (
		everLocated bool
		lastObs     *Observation
	)

	for {
		handle, err := w.locator.Locate(waitCtx, ref)
		if err == nil {
			everLocated = true
			obs, obsErr := w.page.Observe(waitCtx, handle)
			if obsErr == nil {
				ok := true
				for _, p := range spec.Predicates {
					if !holds(p, obs, lastObs) {
						ok = false
						break
					}
				}
				if ok {
					return handle, nil
				}
				lastObs = &obs
			} else {
				// Node went stale between locate and observe; re-locate.
				lastObs = nil
			}
		} else if waitCtx.Err() == nil && ctx.Err() == nil {
			// Not located this round; stability history no longer applies.
			lastObs = nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return Handle{}, ctx.Err()
			}
			if !everLocated {
				return Handle{}, &StepError{Ref: ref, Err: fmt.Errorf(
					"%w: never located within %v", ErrReadinessTimeout, spec.Timeout)}
			}
			return Handle{}, &StepError{Ref: ref, Err: fmt.Errorf(
				"%w: located but predicates %v never held within %v",
				ErrReadinessTimeout, spec.Predicates, spec.Timeout)}
		case <-ticker.C:
		}
	}
}

// holds evaluates one predicate against the current observation. Stable needs
// the previous observation too: the box must match the one seen a poll ago.
func holds(p Predicate, obs Observation, prev *Observation) bool {
	switch p {
	case Attached:
		return obs.Attached
	case Visible:
		return obs.Attached && obs.Visible
	case Enabled:
		return obs.Attached && obs.Enabled
	case Stable:
		return obs.Attached && prev != nil && prev.Attached && obs.Box == prev.Box
	default:
		return false
	}
}
