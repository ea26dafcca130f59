// internal/driver/locator_test.go
package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLocator(page Page) (*Locator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLocator(page, zap.New(core)), logs
}

func TestLocateUniqueMatch(t *testing.T) {
	page := newFakePage(
		visibleButton("btn-mecha", "MECHA-SANTA MK.VII"),
		visibleButton("btn-workshop", "SANTA'S WORKSHOP"),
	)
	locator, logs := newObservedLocator(page)

	ref, err := ByRole("button", "MECHA-SANTA")
	require.NoError(t, err)

	handle, err := locator.Locate(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "btn-mecha", handle.Selector)
	assert.Equal(t, "MECHA-SANTA MK.VII", handle.Name)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len(),
		"an unambiguous locate must not warn")
}

func TestLocateNotFound(t *testing.T) {
	page := newFakePage(visibleButton("btn-engage", "ENGAGE"))
	locator, _ := newObservedLocator(page)

	ref, err := ByRole("button", "RETREAT")
	require.NoError(t, err)

	_, err = locator.Locate(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CategoryNotFound, CategoryOf(err))

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, ref.String(), stepErr.Ref.String())
}

func TestLocatePrefersWholeNameMatch(t *testing.T) {
	// "ENGAGE" is a substring of "DISENGAGE"; only the exact-name candidate
	// should win, silently.
	page := newFakePage(
		visibleButton("btn-disengage", "DISENGAGE"),
		visibleButton("btn-engage", "ENGAGE"),
	)
	locator, logs := newObservedLocator(page)

	ref, err := ByRole("button", "ENGAGE")
	require.NoError(t, err)

	handle, err := locator.Locate(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "btn-engage", handle.Selector)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestLocateAmbiguousFallsBackToDocumentOrder(t *testing.T) {
	page := newFakePage(
		visibleButton("btn-engage-1", "ENGAGE"),
		visibleButton("btn-engage-2", "ENGAGE"),
	)
	locator, logs := newObservedLocator(page)

	ref, err := ByRole("button", "ENGAGE")
	require.NoError(t, err)

	handle, err := locator.Locate(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "btn-engage-1", handle.Selector, "first candidate in document order wins")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, warnings.Len(), "the ambiguous pick must be flagged")
	assert.Contains(t, warnings.All()[0].Message, "ambiguous")
}

func TestLocateByText(t *testing.T) {
	marker := &fakeElement{
		selector: "hdr-title",
		role:     "heading",
		name:     "PROTOCOL: SILENT NIGHT",
		text:     "Protocol: Silent Night",
		attached: true,
		visible:  true,
		enabled:  true,
	}
	page := newFakePage(marker, visibleButton("btn-mecha", "MECHA-SANTA MK.VII"))
	locator, _ := newObservedLocator(page)

	ref, err := ByText("Silent Night")
	require.NoError(t, err)

	handle, err := locator.Locate(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "hdr-title", handle.Selector)
}
