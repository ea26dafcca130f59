// internal/browser/context.go
package browser

import (
	"context"
)

// CombineContext derives a context from primary that is canceled when either
// primary or secondary is canceled. Values (notably the chromedp target
// attached to primary) come from primary; secondary typically carries an
// operational deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
