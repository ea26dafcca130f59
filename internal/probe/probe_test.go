// internal/probe/probe_test.go
package probe

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
	"github.com/frostpath/gauntlet/internal/scenario"
)

func testDriverConfig() config.DriverConfig {
	return config.DriverConfig{
		PollInterval:      2 * time.Millisecond,
		StepTimeout:       100 * time.Millisecond,
		BootTimeout:       100 * time.Millisecond,
		RunTimeout:        time.Second,
		DispatchGrace:     20 * time.Millisecond,
		NavigationTimeout: 100 * time.Millisecond,
	}
}

// startPage renders the game's start screen, or nothing when blank is set.
// Navigate can be made to panic to exercise the probe's recovery path.
type startPage struct {
	mu         sync.Mutex
	blank      bool
	panicOnNav bool

	focusCalls  []string
	screenshots []string
}

var _ driver.Page = (*startPage)(nil)

type startElement struct {
	selector, role, name, text string
}

func (p *startPage) rendered() []startElement {
	if p.blank {
		return nil
	}
	return []startElement{
		{"hdr-title", "heading", "PROTOCOL: SILENT NIGHT", "Protocol: Silent Night"},
		{"btn-mecha", "button", "MECHA-SANTA MK.VII", "MECHA-SANTA MK.VII"},
		{"btn-workshop", "button", "SANTA'S WORKSHOP", "SANTA'S WORKSHOP"},
	}
}

func (p *startPage) Navigate(_ context.Context, _ string) error {
	if p.panicOnNav {
		panic("renderer process vanished")
	}
	return nil
}

func (p *startPage) QueryByRole(_ context.Context, role string, name *regexp.Regexp) ([]driver.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []driver.Handle
	for _, el := range p.rendered() {
		if el.role != role {
			continue
		}
		if name != nil && !name.MatchString(el.name) {
			continue
		}
		out = append(out, driver.Handle{Selector: el.selector, Name: el.name})
	}
	return out, nil
}

func (p *startPage) QueryByText(_ context.Context, text string) ([]driver.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []driver.Handle
	for _, el := range p.rendered() {
		if strings.Contains(el.text, text) {
			out = append(out, driver.Handle{Selector: el.selector, Name: el.name})
		}
	}
	return out, nil
}

func (p *startPage) Observe(_ context.Context, h driver.Handle) (driver.Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.rendered() {
		if el.selector == h.Selector {
			return driver.Observation{Attached: true, Visible: true, Enabled: true,
				Box: driver.Box{X: 10, Y: 10, Width: 200, Height: 50}}, nil
		}
	}
	return driver.Observation{}, nil
}

func (p *startPage) DispatchNative(_ context.Context, _ driver.Handle) error { return nil }
func (p *startPage) DispatchForced(_ context.Context, _ driver.Handle) error { return nil }
func (p *startPage) InvokeScript(_ context.Context, _ driver.Handle) error   { return nil }

func (p *startPage) Focus(_ context.Context, h driver.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusCalls = append(p.focusCalls, h.Selector)
	return nil
}

func (p *startPage) Text(_ context.Context, _ driver.Handle) (string, error) { return "", nil }

func (p *startPage) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.WriteFile(path, []byte("fake-png"), 0o644); err != nil {
		return err
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

func testDefinition(t *testing.T) *Definition {
	t.Helper()
	return &Definition{
		Name:        "focus-probe",
		URL:         "http://localhost:3000",
		StartMarker: "Protocol: Silent Night",
		Target:      scenario.TargetSpec{Role: "button", Name: "MECHA-SANTA"},
		Screenshot:  filepath.Join(t.TempDir(), "focus_state.png"),
	}
}

func runTestProbe(t *testing.T, page driver.Page, def *Definition) Result {
	t.Helper()
	cfg := testDriverConfig()
	logger := zap.NewNop()
	return Run(context.Background(), driver.New(page, cfg, logger), page, cfg, def, logger)
}

func TestProbeFocusesTargetAndCapturesScreenshot(t *testing.T) {
	page := &startPage{}
	def := testDefinition(t)

	res := runTestProbe(t, page, def)

	assert.Empty(t, res.Error)
	assert.True(t, res.Focused)
	assert.Equal(t, def.Screenshot, res.Screenshot)
	assert.Equal(t, []string{"btn-mecha"}, page.focusCalls,
		"the full card title must disambiguate away from SANTA'S WORKSHOP")
	assert.FileExists(t, def.Screenshot)
}

func TestProbeReportsMissingStartMarker(t *testing.T) {
	page := &startPage{blank: true}
	def := testDefinition(t)

	res := runTestProbe(t, page, def)

	assert.False(t, res.Focused)
	assert.Empty(t, res.Screenshot)
	assert.Contains(t, res.Error, "start marker")
	assert.NoFileExists(t, def.Screenshot)
}

func TestProbeRecoversFromPanic(t *testing.T) {
	page := &startPage{panicOnNav: true}
	def := testDefinition(t)

	var res Result
	require.NotPanics(t, func() {
		res = runTestProbe(t, page, def)
	})
	assert.False(t, res.Focused)
	assert.Contains(t, res.Error, "panicked")
}

func TestDefinitionValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Definition)
		wantErr string
	}{
		{"missing name", func(d *Definition) { d.Name = "" }, "name must not be empty"},
		{"missing url", func(d *Definition) { d.URL = "" }, "url must not be empty"},
		{"missing marker", func(d *Definition) { d.StartMarker = "" }, "start_marker"},
		{"missing screenshot", func(d *Definition) { d.Screenshot = "" }, "screenshot"},
		{"bad target", func(d *Definition) { d.Target = scenario.TargetSpec{} }, "role must not be empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := testDefinition(t)
			tc.mutate(def)
			err := def.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
