// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/config"
)

// Manager owns the browser process lifecycle. Each Page it hands out is an
// isolated tab context; concurrent runs (gameplay scenario, focus probe) get
// separate pages and never share mutable browser state.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process. Page contexts derive from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it is responsive.
// On any error the process is already cleaned up.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	m.logger.Info("Initializing browser allocator.", zap.Bool("headless", cfg.Headless))
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Confirm the browser starts and responds before handing out pages.
	testCtx, cancelTimeout := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTest := chromedp.NewContext(testCtx)
	defer cancelTest()
	defer cancelTimeout()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive.")
	return m, nil
}

// NewPage creates a new isolated tab. The caller must Close it.
func (m *Manager) NewPage() (*Page, error) {
	if m.allocatorCtx.Err() != nil {
		return nil, fmt.Errorf("browser manager is shut down: %w", m.allocatorCtx.Err())
	}

	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx)
	// Materialize the target now so the first real action is not paying tab
	// startup costs inside its own timeout.
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	m.wg.Add(1)
	p := newPage(tabCtx, cancel, m.logger)
	p.onClose = m.wg.Done
	return p, nil
}

// Shutdown waits for open pages to close, then terminates the browser
// process. The context bounds the wait; on expiry the process is terminated
// anyway so the resource is always released.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All pages closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded; forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.allocatorCancel()
	<-m.allocatorCtx.Done()
	return nil
}
