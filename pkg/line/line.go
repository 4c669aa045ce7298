package line

import (
	"github.com/google/uuid"
)

// Source tags identify which component produced a line change.
// Subscribers branch on these to avoid reacting to their own writes.
const (
	SourceInit          = "init"
	SourceReset         = "reset"
	SourceFlip          = "flip"
	SourceBoard         = "board"
	SourceOpeningSelect = "opening_select"
	SourcePGNDetect     = "pgn_detect"
	SourceSunburstZoom  = "sunburst_zoom"
	SourceUnknown       = "unknown"
)

// Meta describes a write to the store.
type Meta struct {
	Source string // origin tag; empty means SourceUnknown
	Force  bool   // bypass the idempotence check and re-broadcast
}

// ChangeEvent is delivered to every subscriber when the line changes.
// The JSON form is what the session mirror publishes.
type ChangeEvent struct {
	ID     string `json:"id"`     // UUID - identifies this event in logs and the session mirror
	Line   string `json:"line"`   // the new canonical line
	Source string `json:"source"` // origin tag from Meta
	Forced bool   `json:"forced"` // true when the write bypassed the idempotence check
}

// Handler receives change events. Handlers may call Set on the same
// store during delivery; see the package documentation.
type Handler func(ChangeEvent)

type subscriber struct {
	id uint64
	fn Handler
}

// Store holds the canonical line and its subscriber list.
// The zero value is not usable; call NewStore.
type Store struct {
	line   string
	subs   []subscriber
	nextID uint64
}

// NewStore returns an empty store (line "").
func NewStore() *Store {
	return &Store{}
}

// Line returns the current canonical line.
func (s *Store) Line() string {
	return s.line
}

// Set normalizes raw and, if the result differs from the current line,
// stores it and synchronously notifies all subscribers in registration
// order. Returns true when a change event was delivered.
//
// A Set whose normalized value equals the current line is a no-op
// unless meta.Force is set. This idempotence check is the system's
// cycle-breaker: a handler echoing the line it was just notified of
// terminates the loop here.
func (s *Store) Set(raw string, meta Meta) bool {
	norm := Normalize(raw)
	if norm == s.line && !meta.Force {
		return false
	}
	s.line = norm

	source := meta.Source
	if source == "" {
		source = SourceUnknown
	}
	ev := ChangeEvent{
		ID:     uuid.New().String(),
		Line:   norm,
		Source: source,
		Forced: meta.Force,
	}

	// Snapshot the subscriber list: handlers may subscribe or
	// unsubscribe during delivery, and a reentrant Set must not
	// re-deliver to handlers added mid-notification.
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		sub.fn(ev)
	}
	return true
}

// Subscribe registers a handler and returns a function that removes it.
// Handlers are notified in registration order. Unsubscribing twice is
// safe.
func (s *Store) Subscribe(fn Handler) func() {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
