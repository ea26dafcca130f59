// internal/driver/fake_page_test.go
package driver

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
)

// fakeElement is one scriptable DOM node for the fake page. boxFn, when set,
// lets a test make the bounding box drift across observations.
type fakeElement struct {
	selector string
	role     string
	name     string
	text     string

	attached bool
	visible  bool
	enabled  bool
	occluded bool
	box      Box
	boxFn    func(observation int) Box

	observations int
}

// fakePage is an in-memory Page implementation. All mutating methods are
// mutex-guarded so tests can change the page from a background goroutine
// while the driver polls it.
type fakePage struct {
	mu       sync.Mutex
	elements []*fakeElement

	navErr error

	navigations  []string
	nativeClicks []string
	forcedClicks []string
	scriptCalls  []string
	focusCalls   []string
	screenshots  []string
}

var _ Page = (*fakePage)(nil)

func newFakePage(elements ...*fakeElement) *fakePage {
	return &fakePage{elements: elements}
}

// visibleButton is the common case: an attached, visible, enabled element.
func visibleButton(selector, name string) *fakeElement {
	return &fakeElement{
		selector: selector,
		role:     "button",
		name:     name,
		text:     name,
		attached: true,
		visible:  true,
		enabled:  true,
		box:      Box{X: 10, Y: 10, Width: 100, Height: 40},
	}
}

func (p *fakePage) add(el *fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements = append(p.elements, el)
}

func (p *fakePage) find(selector string) *fakeElement {
	for _, el := range p.elements {
		if el.selector == selector {
			return el
		}
	}
	return nil
}

func (p *fakePage) mutate(selector string, fn func(*fakeElement)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el := p.find(selector); el != nil {
		fn(el)
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return p.navErr
	}
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) QueryByRole(_ context.Context, role string, name *regexp.Regexp) ([]Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Handle
	for _, el := range p.elements {
		if !el.attached || el.role != role {
			continue
		}
		if name != nil && !name.MatchString(el.name) {
			continue
		}
		out = append(out, Handle{Selector: el.selector, Name: el.name})
	}
	return out, nil
}

func (p *fakePage) QueryByText(_ context.Context, text string) ([]Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Handle
	for _, el := range p.elements {
		if el.attached && strings.Contains(el.text, text) {
			out = append(out, Handle{Selector: el.selector, Name: el.name})
		}
	}
	return out, nil
}

func (p *fakePage) Observe(_ context.Context, h Handle) (Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := p.find(h.Selector)
	if el == nil || !el.attached {
		return Observation{}, nil
	}
	box := el.box
	if el.boxFn != nil {
		box = el.boxFn(el.observations)
	}
	el.observations++
	return Observation{Attached: true, Visible: el.visible, Enabled: el.enabled, Box: box}, nil
}

func (p *fakePage) DispatchNative(_ context.Context, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := p.find(h.Selector)
	if el == nil || !el.attached || !el.visible || el.occluded {
		return ErrNotActionable
	}
	p.nativeClicks = append(p.nativeClicks, h.Selector)
	return nil
}

func (p *fakePage) DispatchForced(_ context.Context, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forcedClicks = append(p.forcedClicks, h.Selector)
	return nil
}

func (p *fakePage) InvokeScript(_ context.Context, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scriptCalls = append(p.scriptCalls, h.Selector)
	return nil
}

func (p *fakePage) Focus(_ context.Context, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusCalls = append(p.focusCalls, h.Selector)
	return nil
}

func (p *fakePage) Text(_ context.Context, h Handle) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el := p.find(h.Selector); el != nil && el.attached {
		return el.text, nil
	}
	return "", nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.WriteFile(path, []byte("fake-png"), 0o644); err != nil {
		return err
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}
