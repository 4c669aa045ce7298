package tree

import (
	"context"
	"time"

	"openinglens/internal/anim"
	"openinglens/internal/catalog"
	"openinglens/internal/dataset"
	"openinglens/pkg/line"
)

// View is the rendered angular/radial domain. Focusing a node animates
// the view until the node's span fills it.
type View struct {
	X0, X1 float64 // visible angular range
	Depth  float64 // ring offset of the visible center
}

// State describes what the tree surface should draw.
type State int

const (
	// StateReady means a hierarchy is built and focusable.
	StateReady State = iota
	// StateEmpty means the (time control, elo) slice has no data.
	StateEmpty
	// StateNotFound means the opening filter matched nothing in the
	// slice.
	StateNotFound
)

// Options configures a Navigator.
type Options struct {
	FocusDuration time.Duration // total zoom animation length
	FocusFrames   int           // interpolation steps per zoom
	OnRender      func()        // called after every visual mutation; may be nil
}

// Navigator owns the radial hierarchy and its focus. It rebuilds the
// hierarchy only when the (time control, elo, opening) selection
// changes; line changes merely refocus, which is cheap.
//
// Not safe for concurrent use.
type Navigator struct {
	data   *dataset.Dataset
	cat    *catalog.Catalog
	store  *line.Store
	tokens *anim.Counter
	ctx    context.Context

	hier     *Hierarchy
	hierKey  [3]string
	state    State
	stateMsg string
	focused  *Node
	view     View

	focusDuration time.Duration
	focusFrames   int
	render        func()
	unsub         func()
}

// NewNavigator subscribes a navigator to the store. It starts with no
// hierarchy; call Apply with the initial filters.
func NewNavigator(ctx context.Context, data *dataset.Dataset, cat *catalog.Catalog, store *line.Store, tokens *anim.Counter, opts Options) *Navigator {
	n := &Navigator{
		data:          data,
		cat:           cat,
		store:         store,
		tokens:        tokens,
		ctx:           ctx,
		state:         StateEmpty,
		stateMsg:      "no data loaded",
		focusDuration: opts.FocusDuration,
		focusFrames:   opts.FocusFrames,
		render:        opts.OnRender,
	}
	if n.render == nil {
		n.render = func() {}
	}
	if n.focusFrames < 1 {
		n.focusFrames = 1
	}
	n.unsub = store.Subscribe(n.handleChange)
	return n
}

// Close unsubscribes the navigator from the store.
func (n *Navigator) Close() {
	n.unsub()
}

// Apply selects a (time control, elo, opening) combination, rebuilding
// the hierarchy only when it differs from the current one, then
// refocuses the current line. Missing slices and unmatched openings are
// not fatal: the navigator degrades to an explicit empty state and
// reports the error.
func (n *Navigator) Apply(timeControl, elo, opening string) error {
	key := [3]string{timeControl, elo, opening}
	if n.hier != nil && key == n.hierKey {
		return nil
	}

	hier, err := Build(n.data, n.cat, timeControl, elo, opening)
	if err != nil {
		n.hier = nil
		n.hierKey = key
		n.focused = nil
		switch {
		case dataset.IsMissingSlice(err):
			n.state = StateEmpty
		case IsOpeningNotFound(err):
			n.state = StateNotFound
		default:
			n.state = StateEmpty
		}
		n.stateMsg = err.Error()
		n.render()
		return err
	}

	n.hier = hier
	n.hierKey = key
	n.state = StateReady
	n.stateMsg = ""
	n.focused = hier.Root
	n.view = viewOf(hier.Root)
	n.render()

	n.refocusLine(n.store.Line())
	return nil
}

// handleChange refocuses the tree on every line change. The hierarchy
// is never rebuilt here; that happens only on filter changes.
func (n *Navigator) handleChange(ev line.ChangeEvent) {
	if n.state != StateReady {
		return
	}
	if ev.Source == line.SourceSunburstZoom {
		// The zoom interaction already focused its target.
		return
	}
	n.refocusLine(ev.Line)
}

func (n *Navigator) refocusLine(canonical string) {
	target := n.hier.FindDeepestAncestor(line.Tokens(canonical))
	n.Focus(target)
}

// Focus animates the view until target fills it. Every frame re-checks
// its captured token and performs nothing once a newer transition has
// started.
func (n *Navigator) Focus(target *Node) {
	if target == nil || n.state != StateReady {
		return
	}
	tok := n.tokens.Next()
	n.focused = target

	from := n.view
	to := viewOf(target)
	frames := n.focusFrames

	steps := make([]anim.Step, frames)
	for i := 1; i <= frames; i++ {
		t := float64(i) / float64(frames)
		steps[i-1] = func() {
			n.view = View{
				X0:    from.X0 + (to.X0-from.X0)*t,
				X1:    from.X1 + (to.X1-from.X1)*t,
				Depth: from.Depth + (to.Depth-from.Depth)*t,
			}
			n.render()
		}
	}

	delay := anim.StepDelay(n.focusDuration, n.focusDuration/time.Duration(frames), frames)
	anim.Play(n.ctx, n.tokens, tok, delay, steps)
}

// HandleNodeClick implements the zoom interaction: clicking the focused
// node ascends to its parent, clicking any other node focuses it. The
// target's move path is serialized to numbered movetext and written to
// the store with source "sunburst_zoom"; the synthetic root serializes
// to the empty line.
func (n *Navigator) HandleNodeClick(node *Node) {
	if node == nil || n.state != StateReady {
		return
	}

	target := node
	if node == n.focused && node.Parent != nil {
		target = node.Parent
	}

	n.store.Set(line.Numbered(target.Path), line.Meta{Source: line.SourceSunburstZoom})
	n.Focus(target)
}

// Hierarchy returns the built hierarchy, nil when not ready.
func (n *Navigator) Hierarchy() *Hierarchy {
	return n.hier
}

// Focused returns the focused node, nil when not ready.
func (n *Navigator) Focused() *Node {
	return n.focused
}

// CurrentView returns the rendered domain.
func (n *Navigator) CurrentView() View {
	return n.view
}

// CurrentState reports what the surface should draw and, for degraded
// states, why.
func (n *Navigator) CurrentState() (State, string) {
	return n.state, n.stateMsg
}

func viewOf(node *Node) View {
	return View{X0: node.X0, X1: node.X1, Depth: float64(node.Depth)}
}
