package coordinator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openinglens/internal/catalog"
	"openinglens/pkg/line"
)

const testCatalog = `{
	"All": "",
	"Italian Game": "1. e4 e5 2. Nf3 Nc6 3. Bc4",
	"King's Knight": "e4 e5 Nf3",
	"Queen's Gambit": "1. d4 d5 2. c4"
}`

func newTestCoordinator(t *testing.T) (*Coordinator, *line.Store) {
	t.Helper()
	cat, err := catalog.Decode(strings.NewReader(testCatalog))
	require.NoError(t, err)

	store := line.NewStore()
	c := New(store, cat, nil, Filters{TimeControl: "blitz", Elo: "1500-2000"}, nil)
	t.Cleanup(c.Close)
	return c, store
}

func TestNew_Defaults(t *testing.T) {
	c, _ := newTestCoordinator(t)

	f := c.Filters()
	assert.Equal(t, "blitz", f.TimeControl)
	assert.Equal(t, ColorBoth, f.Color)
	assert.Equal(t, catalog.AllOpening, f.Opening)
}

func TestSetFilters(t *testing.T) {
	t.Run("merges only the given fields", func(t *testing.T) {
		c, _ := newTestCoordinator(t)

		c.SetFilters(Partial{Elo: strptr("2000+")}, Meta{})

		f := c.Filters()
		assert.Equal(t, "2000+", f.Elo)
		assert.Equal(t, "blitz", f.TimeControl, "unset fields unchanged")
	})

	t.Run("notifies dependent renders", func(t *testing.T) {
		cat, err := catalog.Decode(strings.NewReader(testCatalog))
		require.NoError(t, err)

		var seen []Filters
		c := New(line.NewStore(), cat, nil, Filters{}, func(f Filters) { seen = append(seen, f) })
		defer c.Close()

		require.Len(t, seen, 1, "initial propagation")
		c.SetFilters(Partial{Color: strptr(ColorWhite)}, Meta{})
		require.Len(t, seen, 2)
		assert.Equal(t, ColorWhite, seen[1].Color)
	})

	t.Run("opening selection with SetBasePGN loads the prefix", func(t *testing.T) {
		c, store := newTestCoordinator(t)

		var sources []string
		store.Subscribe(func(ev line.ChangeEvent) { sources = append(sources, ev.Source) })

		c.SetFilters(Partial{Opening: strptr("Queen's Gambit")}, Meta{SetBasePGN: true})

		assert.Equal(t, "d4 d5 c4", store.Line())
		assert.Equal(t, []string{line.SourceOpeningSelect}, sources)
	})

	t.Run("opening selection without SetBasePGN keeps the line", func(t *testing.T) {
		c, store := newTestCoordinator(t)
		store.Set("1. e4", line.Meta{Source: line.SourceBoard})

		c.SetFilters(Partial{Opening: strptr("Queen's Gambit")}, Meta{})

		assert.Equal(t, "e4", store.Line(), "incidental filter edits never overwrite the line")
	})

	t.Run("selecting All with SetBasePGN clears the line", func(t *testing.T) {
		c, store := newTestCoordinator(t)
		store.Set("1. e4", line.Meta{Source: line.SourceBoard})

		c.SetFilters(Partial{Opening: strptr(catalog.AllOpening)}, Meta{SetBasePGN: true})

		assert.Equal(t, "", store.Line())
	})
}

func TestHandleChange_Detection(t *testing.T) {
	t.Run("adopts the detected opening", func(t *testing.T) {
		c, store := newTestCoordinator(t)

		store.Set("1. e4 e5 2. Nf3", line.Meta{Source: line.SourceBoard})

		assert.Equal(t, "King's Knight", c.Filters().Opening)
		assert.Equal(t, "e4 e5 Nf3", store.Line(), "adoption must not reload the base prefix")
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		c, store := newTestCoordinator(t)

		store.Set("1. e4 e5 2. Nf3 Nc6 3. Bc4 Bc5", line.Meta{Source: line.SourceBoard})

		assert.Equal(t, "Italian Game", c.Filters().Opening)
	})

	t.Run("undetected line leaves the filter alone", func(t *testing.T) {
		c, store := newTestCoordinator(t)
		c.SetFilters(Partial{Opening: strptr("King's Knight")}, Meta{})

		store.Set("1. c4", line.Meta{Source: line.SourceBoard})

		assert.Equal(t, "King's Knight", c.Filters().Opening)
	})

	t.Run("empty line reverts the opening to All", func(t *testing.T) {
		c, store := newTestCoordinator(t)
		c.SetFilters(Partial{Opening: strptr("King's Knight")}, Meta{})
		store.Set("1. e4", line.Meta{Source: line.SourceBoard})

		store.Set("", line.Meta{Source: line.SourceBoard})

		assert.Equal(t, catalog.AllOpening, c.Filters().Opening)
	})
}

// TestHandleChange_Reset tests the reset policy: reset reverts the
// color filter to "both" along with the opening
func TestHandleChange_Reset(t *testing.T) {
	c, store := newTestCoordinator(t)
	c.SetFilters(Partial{Color: strptr(ColorBlack), Opening: strptr("King's Knight")}, Meta{})
	store.Set("1. e4", line.Meta{Source: line.SourceBoard})

	store.Set("", line.Meta{Source: line.SourceReset, Force: true})

	f := c.Filters()
	assert.Equal(t, catalog.AllOpening, f.Opening)
	assert.Equal(t, ColorBoth, f.Color)
}

// TestHandleChange_NonResetClearKeepsColor tests that clearing the line
// by other means leaves the color filter unchanged
func TestHandleChange_NonResetClearKeepsColor(t *testing.T) {
	c, store := newTestCoordinator(t)
	c.SetFilters(Partial{Color: strptr(ColorWhite)}, Meta{})
	store.Set("1. e4", line.Meta{Source: line.SourceBoard})

	store.Set("", line.Meta{Source: line.SourceSunburstZoom})

	assert.Equal(t, ColorWhite, c.Filters().Color)
}

// TestFeedbackLoop tests a full cycle: opening selection writes a base
// line, detection sees it, and no further writes occur
func TestFeedbackLoop(t *testing.T) {
	c, store := newTestCoordinator(t)

	events := 0
	store.Subscribe(func(line.ChangeEvent) { events++ })

	c.SetFilters(Partial{Opening: strptr("Italian Game")}, Meta{SetBasePGN: true})

	assert.Equal(t, 1, events, "exactly one change event for the whole cycle")
	assert.Equal(t, "e4 e5 Nf3 Nc6 Bc4", store.Line())
	assert.Equal(t, "Italian Game", c.Filters().Opening)
}
