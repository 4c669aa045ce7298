// Package board owns the authoritative chess position derived from the
// canonical line. External line changes rebuild the position from
// scratch; only user-initiated moves mutate it incrementally.
package board

import (
	"context"
	"log"
	"time"

	"openinglens/internal/anim"
	"openinglens/internal/rules"
	"openinglens/pkg/line"
)

// LastMove is the from/to pair highlighted after the most recent move.
type LastMove struct {
	From rules.Square
	To   rules.Square
}

// Controller reacts to line changes by replaying the canonical line
// through the rules engine, and feeds user moves back into the store.
//
// Not safe for concurrent use; the application dispatches all calls
// from one loop.
type Controller struct {
	store     *line.Store
	newEngine rules.Factory
	tokens    *anim.Counter

	engine       rules.Engine // authoritative position
	orientation  rules.Color
	selected     rules.Square // "" when nothing is selected
	legalTargets []rules.Square
	lastMove     *LastMove
	animating    bool

	// applyingOwnMove suppresses the rebuild that would otherwise be
	// triggered by the broadcast of a move this controller just made.
	applyingOwnMove bool

	animTotal   time.Duration
	animPerStep time.Duration
	render      func()

	ctx   context.Context
	unsub func()
}

// Options configures a Controller.
type Options struct {
	AnimTotal   time.Duration // total budget for a multi-move replay
	AnimPerStep time.Duration // pacing between replay steps
	OnRender    func()        // called after every visual mutation; may be nil
}

// NewController subscribes a controller to the store. The shared token
// counter is the same one the tree navigator uses, so that any new
// transition anywhere supersedes in-flight board animation.
func NewController(ctx context.Context, store *line.Store, factory rules.Factory, tokens *anim.Counter, opts Options) *Controller {
	c := &Controller{
		store:       store,
		newEngine:   factory,
		tokens:      tokens,
		engine:      factory(),
		orientation: rules.White,
		animTotal:   opts.AnimTotal,
		animPerStep: opts.AnimPerStep,
		render:      opts.OnRender,
		ctx:         ctx,
	}
	if c.render == nil {
		c.render = func() {}
	}
	c.unsub = store.Subscribe(c.handleChange)
	return c
}

// Close unsubscribes the controller from the store.
func (c *Controller) Close() {
	c.unsub()
}

// instantSources apply without animation: startup, reset, orientation
// flips, and the controller's own writes.
var instantSources = map[string]bool{
	line.SourceInit:  true,
	line.SourceReset: true,
	line.SourceFlip:  true,
	line.SourceBoard: true,
}

// handleChange rebuilds the position from the new canonical line.
// Teleport semantics: the position is fully re-derived, never patched.
func (c *Controller) handleChange(ev line.ChangeEvent) {
	if ev.Source == line.SourceBoard || c.applyingOwnMove {
		// The position already reflects this line; rebuilding it would
		// re-trigger the loop the source tag exists to break.
		return
	}

	target := c.newEngine()
	if err := target.LoadMovetext(ev.Line); err != nil {
		// Malformed external movetext: keep prior state, no broadcast.
		log.Printf("[board] rejecting line %q: %v", ev.Line, err)
		return
	}

	c.clearSelection()

	if instantSources[ev.Source] {
		// Instant changes still supersede any in-flight replay.
		c.tokens.Next()
		c.engine = target
		c.lastMove = nil
		if mv := target.LastApplied(); mv != nil {
			c.lastMove = &LastMove{From: mv.From, To: mv.To}
		}
		c.animating = false
		c.render()
		return
	}

	c.animateReplay(target.History())
}

// animateReplay steps a fresh engine through sans one move at a time.
// A newer transition invalidates the captured token and the remaining
// steps silently perform nothing.
func (c *Controller) animateReplay(sans []string) {
	tok := c.tokens.Next()

	visible := c.newEngine()
	c.engine = visible
	c.lastMove = nil
	c.animating = true
	c.render()

	steps := make([]anim.Step, len(sans))
	for i, san := range sans {
		san := san
		steps[i] = func() {
			mv, err := visible.ApplySAN(san)
			if err != nil {
				// Cannot happen for a line that already replayed; bail
				// without touching anything further.
				log.Printf("[board] replay step %q failed: %v", san, err)
				return
			}
			c.lastMove = &LastMove{From: mv.From, To: mv.To}
			c.render()
		}
	}

	delay := anim.StepDelay(c.animTotal, c.animPerStep, len(steps))
	completed := anim.Play(c.ctx, c.tokens, tok, delay, steps)
	if completed && c.tokens.IsLive(tok) {
		c.animating = false
		c.render()
	}
}

// HandleSquareClick implements the two-click move entry surface.
// The first click on an own-color piece selects it; the second click on
// a legal destination applies the move and commits the new line with
// source "board". An illegal destination recomputes the selection and
// changes nothing else.
func (c *Controller) HandleSquareClick(sq rules.Square) {
	if c.selected == "" {
		c.trySelect(sq)
		return
	}

	if c.isLegalTarget(sq) {
		c.applyUserMove(c.selected, sq, "")
		return
	}

	// Illegal destination: re-select if the click landed on another
	// own-color piece, otherwise refresh targets for the current one.
	if p, ok := c.engine.PieceAt(sq); ok && p.Color == c.engine.Turn() {
		c.selected = sq
	}
	c.legalTargets = c.engine.LegalDestinations(c.selected)
	c.render()
}

// HandleMove applies a user move given as coordinates, bypassing the
// click selection state. Used by the CLI's coordinate entry.
func (c *Controller) HandleMove(from, to rules.Square, promotion rules.PieceType) error {
	if _, err := rules.ParseSquare(string(from)); err != nil {
		return err
	}
	if _, err := rules.ParseSquare(string(to)); err != nil {
		return err
	}
	return c.applyUserMove(from, to, promotion)
}

func (c *Controller) trySelect(sq rules.Square) {
	p, ok := c.engine.PieceAt(sq)
	if !ok || p.Color != c.engine.Turn() {
		return
	}
	c.selected = sq
	c.legalTargets = c.engine.LegalDestinations(sq)
	c.render()
}

func (c *Controller) isLegalTarget(sq rules.Square) bool {
	for _, t := range c.legalTargets {
		if t == sq {
			return true
		}
	}
	return false
}

func (c *Controller) applyUserMove(from, to rules.Square, promotion rules.PieceType) error {
	mv, err := c.engine.ApplyMove(from, to, promotion)
	if err != nil {
		if c.selected != "" {
			c.legalTargets = c.engine.LegalDestinations(c.selected)
		}
		c.render()
		return err
	}

	c.lastMove = &LastMove{From: mv.From, To: mv.To}
	c.clearSelection()

	// A single user move still starts a transition so that any pending
	// replay is superseded before we render the new position.
	c.tokens.Next()
	c.render()

	c.applyingOwnMove = true
	c.store.Set(c.engine.PositionAsMovetext(), line.Meta{Source: line.SourceBoard})
	c.applyingOwnMove = false
	return nil
}

// SetOrientation flips which color renders at the bottom. Idempotent
// and never touches the position.
func (c *Controller) SetOrientation(dir rules.Color) {
	if c.orientation == dir {
		return
	}
	c.orientation = dir
	c.render()
}

// Orientation reports which color renders at the bottom.
func (c *Controller) Orientation() rules.Color {
	return c.orientation
}

// Selected returns the selected source square, or "" when none.
func (c *Controller) Selected() rules.Square {
	return c.selected
}

// LegalTargets returns the legal destinations for the selection.
func (c *Controller) LegalTargets() []rules.Square {
	out := make([]rules.Square, len(c.legalTargets))
	copy(out, c.legalTargets)
	return out
}

// LastMovePair returns the highlighted from/to pair, or nil.
func (c *Controller) LastMovePair() *LastMove {
	return c.lastMove
}

// Animating reports whether a replay is in progress.
func (c *Controller) Animating() bool {
	return c.animating
}

// Position exposes the authoritative position read-only.
func (c *Controller) Position() rules.Engine {
	return c.engine
}

func (c *Controller) clearSelection() {
	c.selected = ""
	c.legalTargets = nil
}
