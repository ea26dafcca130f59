// internal/driver/page.go
// The Page interface is the driver's only window into the browser. The real
// implementation lives in internal/browser; tests substitute fakes. Keeping
// the surface this small is what makes the locate/wait/dispatch/assert
// pipeline testable without a browser process.
package driver

import (
	"context"
	"regexp"
)

// Handle is an ownership-free, possibly stale reference to a live DOM node.
// It is produced by a locate call at a point in time; a re-render may detach
// the underlying node at any moment, so consumers must re-check readiness
// rather than assume the handle stays valid.
type Handle struct {
	// Selector uniquely targets the node until the next re-render.
	Selector string
	// Name is the accessible name observed at locate time.
	Name string
}

// Box is an element's bounding geometry in CSS pixels.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Observation is a point-in-time snapshot of a node's interaction-relevant
// state. A detached node reports Attached=false and zeroes elsewhere.
type Observation struct {
	Attached bool
	Visible  bool
	Enabled  bool
	Box      Box
}

// Page is the capability the driver consumes. Implementations own the
// browser connection; the driver owns nothing and is safe to use from a
// single scenario goroutine at a time.
type Page interface {
	// Navigate loads the given URL and returns once the document is ready.
	Navigate(ctx context.Context, url string) error

	// QueryByRole returns all rendered elements of the given role whose
	// accessible name matches the pattern, in document order.
	QueryByRole(ctx context.Context, role string, name *regexp.Regexp) ([]Handle, error)

	// QueryByText returns all rendered elements whose visible text contains
	// the given string, in document order.
	QueryByText(ctx context.Context, text string) ([]Handle, error)

	// Observe reports the node's current interaction-relevant state.
	Observe(ctx context.Context, h Handle) (Observation, error)

	// DispatchNative performs a simulated pointer click with full
	// actionability checks. It returns ErrNotActionable when the element is
	// obscured, moving, or otherwise not safely clickable right now.
	DispatchNative(ctx context.Context, h Handle) error

	// DispatchForced performs a simulated pointer click at the element's
	// box center without hit-testing for occlusion.
	DispatchForced(ctx context.Context, h Handle) error

	// InvokeScript triggers the element's activation behavior at the
	// scripting layer, bypassing geometry entirely.
	InvokeScript(ctx context.Context, h Handle) error

	// Focus moves keyboard focus to the element.
	Focus(ctx context.Context, h Handle) error

	// Text returns the element's current visible text.
	Text(ctx context.Context, h Handle) (string, error)

	// Screenshot captures the viewport to the given file path.
	Screenshot(ctx context.Context, path string) error
}
