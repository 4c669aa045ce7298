// Package line provides the canonical move line shared by every view in
// openinglens.
//
// # Overview
//
// The line store holds exactly one piece of authoritative state: the
// current move sequence as normalized movetext. Every component (board,
// tree, coordinator, session mirror, CLI) communicates by writing to the
// store and reacting to its change events. No component holds a second
// authoritative copy; board positions and tree focus are re-derived from
// the line on every external change.
//
// # Core Concepts
//
// The canonical line is plain movetext with all PGN decoration removed:
// no tag pairs, no brace comments, no parenthesized variations, no
// numeric annotation glyphs, no move numbers, no result token.
// Normalize is the single entry point for that stripping; Set normalizes
// its input before comparing.
//
// Change events carry a source tag naming the component that produced
// the write. Subscribers use the tag to decide how to react (the board
// ignores its own writes, the coordinator distinguishes a detected
// opening from an explicit selection).
//
// # Feedback Loops
//
// Views feed into each other: a board move updates the tree, a tree zoom
// updates the board, and both update the opening filter. The store
// breaks the resulting cycles with one rule: a Set whose normalized
// value equals the current line does not notify. Handlers are allowed to
// call Set while a notification is being delivered; correctness relies
// on that idempotence check alone, not on suppression flags or locks.
//
// # Concurrency
//
// The store is not safe for concurrent use. All writes and
// notifications happen synchronously on the caller's goroutine, in
// subscriber registration order. Callers that share a store across
// goroutines must serialize access themselves; the rest of openinglens
// dispatches everything from a single loop.
package line
