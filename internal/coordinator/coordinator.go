// Package coordinator owns the filter state and keeps the opening
// filter consistent with the canonical line.
package coordinator

import (
	"encoding/json"
	"log"
	"time"

	"openinglens/internal/catalog"
	"openinglens/internal/tree"
	"openinglens/pkg/line"
)

// Color filter values. The color filter scopes the stats surface only;
// it never affects the line or the hierarchy.
const (
	ColorBoth  = "both"
	ColorWhite = "white"
	ColorBlack = "black"
)

// Filters is the full filter state.
type Filters struct {
	TimeControl string
	Elo         string
	Color       string
	Opening     string
}

// Partial is a sparse filter update; nil fields are left unchanged.
type Partial struct {
	TimeControl *string
	Elo         *string
	Color       *string
	Opening     *string
}

// Meta qualifies a SetFilters call.
type Meta struct {
	// SetBasePGN loads the selected opening's catalog prefix into the
	// line store. Only explicit opening selections set this; incidental
	// filter edits never overwrite the in-progress line.
	SetBasePGN bool
	// Source tags the resulting line write; defaults to
	// "opening_select".
	Source string
}

// Coordinator mediates between the filter surface, the catalog, and the
// line store. Not safe for concurrent use.
type Coordinator struct {
	store   *line.Store
	cat     *catalog.Catalog
	nav     *tree.Navigator
	filters Filters

	// onChanged is invoked after every filter merge so dependent
	// surfaces (stats, charts) re-render. May be nil.
	onChanged func(Filters)

	unsub func()
}

// New subscribes a coordinator to the store with the given initial
// filters. The navigator is applied immediately.
func New(store *line.Store, cat *catalog.Catalog, nav *tree.Navigator, initial Filters, onChanged func(Filters)) *Coordinator {
	if initial.Color == "" {
		initial.Color = ColorBoth
	}
	if initial.Opening == "" {
		initial.Opening = catalog.AllOpening
	}
	c := &Coordinator{
		store:     store,
		cat:       cat,
		nav:       nav,
		filters:   initial,
		onChanged: onChanged,
	}
	c.unsub = store.Subscribe(c.handleChange)
	c.applyDependents()
	return c
}

// Close unsubscribes the coordinator from the store.
func (c *Coordinator) Close() {
	c.unsub()
}

// Catalog returns the opening catalog behind the filter surface.
func (c *Coordinator) Catalog() *catalog.Catalog {
	return c.cat
}

// Filters returns the current filter state.
func (c *Coordinator) Filters() Filters {
	return c.filters
}

// SetFilters merges the partial update and propagates it to dependent
// renders. Only when meta.SetBasePGN is set does the selected opening's
// catalog prefix replace the current line.
func (c *Coordinator) SetFilters(p Partial, meta Meta) {
	if p.TimeControl != nil {
		c.filters.TimeControl = *p.TimeControl
	}
	if p.Elo != nil {
		c.filters.Elo = *p.Elo
	}
	if p.Color != nil {
		c.filters.Color = *p.Color
	}
	if p.Opening != nil {
		c.filters.Opening = *p.Opening
	}

	c.applyDependents()

	if meta.SetBasePGN && p.Opening != nil {
		c.loadBaseLine(*p.Opening, meta)
	}
}

// loadBaseLine writes an opening's catalog prefix to the store.
// Selecting "All" clears the line.
func (c *Coordinator) loadBaseLine(opening string, meta Meta) {
	source := meta.Source
	if source == "" {
		source = line.SourceOpeningSelect
	}

	if opening == catalog.AllOpening {
		c.store.Set("", line.Meta{Source: source})
		return
	}
	entry, ok := c.cat.Get(opening)
	if !ok {
		c.logEvent("unknown_opening_selected", map[string]interface{}{"opening": opening})
		return
	}
	c.store.Set(line.Numbered(entry.Prefix), line.Meta{Source: source})
}

// handleChange keeps the opening filter consistent with the line:
// an empty line reverts to "All", a detected opening that differs from
// the current filter is adopted. Adoption never reloads the base prefix
// over the line the user just played.
func (c *Coordinator) handleChange(ev line.ChangeEvent) {
	if ev.Line == "" {
		p := Partial{Opening: strptr(catalog.AllOpening)}
		if ev.Source == line.SourceReset {
			// A reset returns the whole surface to its landing state,
			// color filter included.
			p.Color = strptr(ColorBoth)
		}
		if c.filters.Opening != catalog.AllOpening || p.Color != nil {
			c.SetFilters(p, Meta{SetBasePGN: false})
		}
		return
	}

	entry, ok := c.cat.DetectFromPrefix(ev.Line)
	if !ok || entry.Name == c.filters.Opening {
		return
	}

	c.logEvent("opening_detected", map[string]interface{}{
		"event_id": ev.ID,
		"line":     ev.Line,
		"opening":  entry.Name,
		"previous": c.filters.Opening,
	})
	c.SetFilters(
		Partial{Opening: strptr(entry.Name)},
		Meta{SetBasePGN: false, Source: line.SourcePGNDetect},
	)
}

// applyDependents pushes the filter state to the navigator and the
// render callback. Navigator failures degrade to its empty state and
// are already logged there.
func (c *Coordinator) applyDependents() {
	if c.nav != nil {
		if err := c.nav.Apply(c.filters.TimeControl, c.filters.Elo, c.filters.Opening); err != nil {
			c.logEvent("tree_degraded", map[string]interface{}{
				"time_control": c.filters.TimeControl,
				"elo":          c.filters.Elo,
				"opening":      c.filters.Opening,
				"error":        err.Error(),
			})
		}
	}
	if c.onChanged != nil {
		c.onChanged(c.filters)
	}
}

// logEvent logs a structured event in JSON format.
func (c *Coordinator) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "coordinator"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[coordinator] failed to marshal log event: %v", err)
		return
	}
	log.Println(string(jsonData))
}

func strptr(s string) *string { return &s }
