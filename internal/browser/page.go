// internal/browser/page.go
// Page implements the driver.Page capability over a chromedp tab context.
//
// Element handles are generated data attributes: a query tags each match with
// a data-gauntlet-id and returns a selector targeting it. A re-render that
// replaces the node drops the attribute, so a stale handle simply stops
// resolving and the driver re-locates, which is exactly the contract the
// driver's components are built around.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/driver"
)

const handleAttr = "data-gauntlet-id"

// Page is one isolated browser tab implementing driver.Page.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	onClose func()

	closeOnce sync.Once
}

func newPage(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Page {
	return &Page{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("page"),
	}
}

// Close releases the tab. Safe to call more than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

// run executes chromedp actions under the tab context combined with the
// operational context, so either the tab dying or the op deadline expiring
// stops the action.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(p.ctx, ctx)
	defer cancel()

	err := chromedp.Run(combined, actions...)
	if err != nil {
		// Report the most specific context error.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.ctx.Err() != nil {
			return fmt.Errorf("page closed: %w", p.ctx.Err())
		}
	}
	return err
}

// Navigate loads the URL and waits for the document to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Info("Navigating.", zap.String("url", url))
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

type queryHit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// roleQueryJS tags every element of the requested role whose accessible name
// matches the pattern and returns their handle ids in document order. The
// role is the explicit role attribute or the implicit ARIA role of common
// tags; the accessible name follows aria-labelledby > aria-label > text.
const roleQueryJS = `(function(role, pattern, attr) {
	const re = new RegExp(pattern);
	if (!window.__gauntletSeq) { window.__gauntletSeq = 0; }
	const implicitRole = (el) => {
		const tag = el.tagName.toLowerCase();
		switch (tag) {
		case 'button': return 'button';
		case 'a': return el.hasAttribute('href') ? 'link' : null;
		case 'select': return 'combobox';
		case 'textarea': return 'textbox';
		case 'input': {
			const t = (el.getAttribute('type') || 'text').toLowerCase();
			if (t === 'button' || t === 'submit' || t === 'reset') return 'button';
			if (t === 'checkbox') return 'checkbox';
			if (t === 'radio') return 'radio';
			if (t === 'hidden') return null;
			return 'textbox';
		}
		case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
		default: return null;
		}
	};
	const accessibleName = (el) => {
		const labelled = el.getAttribute('aria-labelledby');
		if (labelled) {
			const name = labelled.split(/\s+/).map((id) => {
				const ref = document.getElementById(id);
				return ref ? ref.textContent.trim() : '';
			}).join(' ').trim();
			if (name) return name;
		}
		const label = el.getAttribute('aria-label');
		if (label && label.trim()) return label.trim();
		return (el.textContent || '').replace(/\s+/g, ' ').trim();
	};
	const out = [];
	for (const el of document.querySelectorAll('*')) {
		const r = el.getAttribute('role') || implicitRole(el);
		if (r !== role) continue;
		const name = accessibleName(el);
		if (!re.test(name)) continue;
		if (!el.hasAttribute(attr)) {
			el.setAttribute(attr, 'g-' + (++window.__gauntletSeq));
		}
		out.push({ id: el.getAttribute(attr), name: name });
	}
	return out;
})(%q, %q, %q)`

// textQueryJS returns the innermost elements whose text contains the given
// fragment. Innermost matters: every ancestor of a match also contains the
// text, and handing those back would make every text reference ambiguous.
const textQueryJS = `(function(text, attr) {
	if (!window.__gauntletSeq) { window.__gauntletSeq = 0; }
	const matches = [];
	for (const el of document.querySelectorAll('*')) {
		if ((el.textContent || '').includes(text)) matches.push(el);
	}
	const innermost = matches.filter((el) => !matches.some((other) => other !== el && el.contains(other)));
	const out = [];
	for (const el of innermost) {
		if (!el.hasAttribute(attr)) {
			el.setAttribute(attr, 'g-' + (++window.__gauntletSeq));
		}
		out.push({ id: el.getAttribute(attr), name: (el.textContent || '').replace(/\s+/g, ' ').trim() });
	}
	return out;
})(%q, %q)`

func (p *Page) QueryByRole(ctx context.Context, role string, name *regexp.Regexp) ([]driver.Handle, error) {
	pattern := ""
	if name != nil {
		pattern = name.String()
	}
	return p.query(ctx, fmt.Sprintf(roleQueryJS, role, pattern, handleAttr))
}

func (p *Page) QueryByText(ctx context.Context, text string) ([]driver.Handle, error) {
	return p.query(ctx, fmt.Sprintf(textQueryJS, text, handleAttr))
}

func (p *Page) query(ctx context.Context, script string) ([]driver.Handle, error) {
	var hits []queryHit
	if err := p.run(ctx, chromedp.Evaluate(script, &hits)); err != nil {
		return nil, fmt.Errorf("element query failed: %w", err)
	}
	handles := make([]driver.Handle, 0, len(hits))
	for _, h := range hits {
		handles = append(handles, driver.Handle{
			Selector: fmt.Sprintf(`[%s=%q]`, handleAttr, h.ID),
			Name:     h.Name,
		})
	}
	return handles, nil
}

// observeJS snapshots the node's interaction-relevant state.
const observeJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) {
		return { attached: false, visible: false, enabled: false, box: { x: 0, y: 0, width: 0, height: 0 } };
	}
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	const visible = rect.width > 0 && rect.height > 0 &&
		style.visibility !== 'hidden' && style.display !== 'none' &&
		parseFloat(style.opacity || '1') > 0;
	const enabled = !el.disabled && el.getAttribute('aria-disabled') !== 'true';
	return {
		attached: true,
		visible: visible,
		enabled: enabled,
		box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height }
	};
})(%q)`

type observation struct {
	Attached bool `json:"attached"`
	Visible  bool `json:"visible"`
	Enabled  bool `json:"enabled"`
	Box      struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"box"`
}

func (p *Page) Observe(ctx context.Context, h driver.Handle) (driver.Observation, error) {
	var obs observation
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(observeJS, h.Selector), &obs)); err != nil {
		return driver.Observation{}, fmt.Errorf("observe %s failed: %w", h.Selector, err)
	}
	return driver.Observation{
		Attached: obs.Attached,
		Visible:  obs.Visible,
		Enabled:  obs.Enabled,
		Box: driver.Box{
			X:      obs.Box.X,
			Y:      obs.Box.Y,
			Width:  obs.Box.Width,
			Height: obs.Box.Height,
		},
	}, nil
}

// actionabilityJS performs the full pre-click checks including the hit-test:
// the element at the box center must be the target or inside it, otherwise
// something is intercepting pointer events.
const actionabilityJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return { ok: false, reason: 'detached' };
	const rect = el.getBoundingClientRect();
	if (rect.width === 0 || rect.height === 0) return { ok: false, reason: 'zero-size' };
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none' || parseFloat(style.opacity || '1') === 0) {
		return { ok: false, reason: 'hidden' };
	}
	if (el.disabled) return { ok: false, reason: 'disabled' };
	const cx = rect.x + rect.width / 2;
	const cy = rect.y + rect.height / 2;
	const hit = document.elementFromPoint(cx, cy);
	if (!hit || (hit !== el && !el.contains(hit))) return { ok: false, reason: 'obscured' };
	return { ok: true, cx: cx, cy: cy };
})(%q)`

// boxCenterJS scrolls the element into view and returns its center without
// hit-testing.
const boxCenterJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return { ok: false, reason: 'detached' };
	el.scrollIntoView({ block: 'center', inline: 'center' });
	const rect = el.getBoundingClientRect();
	return { ok: true, cx: rect.x + rect.width / 2, cy: rect.y + rect.height / 2 };
})(%q)`

type clickPoint struct {
	OK     bool    `json:"ok"`
	Reason string  `json:"reason"`
	CX     float64 `json:"cx"`
	CY     float64 `json:"cy"`
}

// DispatchNative clicks through the full actionability gate. Check failures
// surface as driver.ErrNotActionable so the dispatcher's grace loop can
// retry; a genuinely broken dispatch returns a plain error.
func (p *Page) DispatchNative(ctx context.Context, h driver.Handle) error {
	var pt clickPoint
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(actionabilityJS, h.Selector), &pt)); err != nil {
		return fmt.Errorf("actionability check for %s failed: %w", h.Selector, err)
	}
	if !pt.OK {
		return fmt.Errorf("%w: %s (%s)", driver.ErrNotActionable, h.Selector, pt.Reason)
	}
	if err := p.run(ctx, chromedp.MouseClickXY(pt.CX, pt.CY)); err != nil {
		return fmt.Errorf("pointer click on %s failed: %w", h.Selector, err)
	}
	return nil
}

// DispatchForced clicks the box center regardless of what is on top of it.
func (p *Page) DispatchForced(ctx context.Context, h driver.Handle) error {
	var pt clickPoint
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(boxCenterJS, h.Selector), &pt)); err != nil {
		return fmt.Errorf("box lookup for %s failed: %w", h.Selector, err)
	}
	if !pt.OK {
		return fmt.Errorf("forced click target %s is %s", h.Selector, pt.Reason)
	}
	if err := p.run(ctx, chromedp.MouseClickXY(pt.CX, pt.CY)); err != nil {
		return fmt.Errorf("forced click on %s failed: %w", h.Selector, err)
	}
	return nil
}

// invokeJS triggers the element's activation behavior directly.
// HTMLElement.click() fires the full click event sequence without any
// geometry, which is the point of the script strategy.
const invokeJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
})(%q)`

func (p *Page) InvokeScript(ctx context.Context, h driver.Handle) error {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(invokeJS, h.Selector), &ok)); err != nil {
		return fmt.Errorf("script invocation on %s failed: %w", h.Selector, err)
	}
	if !ok {
		return fmt.Errorf("script invocation target %s is detached", h.Selector)
	}
	return nil
}

const focusJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	return document.activeElement === el;
})(%q)`

func (p *Page) Focus(ctx context.Context, h driver.Handle) error {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(focusJS, h.Selector), &ok)); err != nil {
		return fmt.Errorf("focus on %s failed: %w", h.Selector, err)
	}
	if !ok {
		return fmt.Errorf("element %s did not take focus", h.Selector)
	}
	return nil
}

const textJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return null;
	return (el.textContent || '').replace(/\s+/g, ' ').trim();
})(%q)`

func (p *Page) Text(ctx context.Context, h driver.Handle) (string, error) {
	var text *string
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(textJS, h.Selector), &text)); err != nil {
		return "", fmt.Errorf("text read on %s failed: %w", h.Selector, err)
	}
	if text == nil {
		return "", fmt.Errorf("text read target %s is detached", h.Selector)
	}
	return *text, nil
}

// Screenshot captures the viewport to path, creating parent directories.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	p.logger.Info("Screenshot written.", zap.String("path", path))
	return nil
}

var _ driver.Page = (*Page)(nil)
