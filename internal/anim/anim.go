// Package anim implements token-based cancellation for animated
// transitions. Starting a new transition increments a shared counter;
// every in-flight step re-checks its captured token against the counter
// immediately before mutating visual state and aborts on mismatch.
// A stale step is not an error and performs zero mutation.
package anim

import (
	"context"
	"sync/atomic"
	"time"
)

// Token identifies one animated transition. Tokens are monotonically
// increasing; a token is stale once any newer transition has started.
type Token uint64

// Counter issues tokens. Safe for concurrent use: the playback goroutine
// reads the live token while the dispatch goroutine issues new ones.
type Counter struct {
	n atomic.Uint64
}

// Next starts a new transition: it invalidates every outstanding token
// and returns the new live one.
func (c *Counter) Next() Token {
	return Token(c.n.Add(1))
}

// Live returns the current live token.
func (c *Counter) Live() Token {
	return Token(c.n.Load())
}

// IsLive reports whether tok is still the live token.
func (c *Counter) IsLive(tok Token) bool {
	return c.Live() == tok
}

// Step performs one unit of visual mutation.
type Step func()

// Play executes steps in order with delay between them, re-checking tok
// against c before each step. Returns true if every step ran, false if
// the transition was superseded or the context was cancelled. Aborting
// does not roll back steps already performed.
//
// Play blocks; callers wanting background playback run it in a
// goroutine. A zero delay plays all steps back to back, still under the
// token guard.
func Play(ctx context.Context, c *Counter, tok Token, delay time.Duration, steps []Step) bool {
	for i, step := range steps {
		if !c.IsLive(tok) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}
		step()

		if delay > 0 && i < len(steps)-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false
			case <-timer.C:
			}
		}
	}
	return true
}

// StepDelay bounds a replay's pacing: the per-step delay, shrunk so n
// steps never exceed total.
func StepDelay(total, perStep time.Duration, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	if budget := total / time.Duration(n); budget < perStep {
		return budget
	}
	return perStep
}
