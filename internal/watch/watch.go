// Package watch streams a mirrored session's line change events for
// observation from a second process.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"openinglens/internal/session"
	"openinglens/pkg/line"
)

// OutputFormat selects how events are rendered.
type OutputFormat int

const (
	// OutputFormatDefault is human-readable output with timestamps.
	OutputFormatDefault OutputFormat = iota
	// OutputFormatJSON is line-delimited JSON for programmatic processing.
	OutputFormatJSON
)

// PollForSnapshot polls until the session has a persisted snapshot.
// Returns the snapshot or an error if timeout occurs.
// Polls every 200ms for the specified timeout duration.
func PollForSnapshot(ctx context.Context, store *session.Store, timeout time.Duration) (session.Snapshot, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return session.Snapshot{}, ctx.Err()

		case <-timeoutCh:
			return session.Snapshot{}, fmt.Errorf("timeout waiting for session snapshot after %v", timeout)

		case <-ticker.C:
			snap, err := store.Load(ctx)
			if err != nil {
				if session.IsNotFound(err) {
					// Not found yet, continue polling
					continue
				}
				return session.Snapshot{}, fmt.Errorf("failed to query session state: %w", err)
			}

			return snap, nil
		}
	}
}

// Streamer subscribes to a session's change channel and writes each
// event to out in the selected format.
type Streamer struct {
	store  *session.Store
	format OutputFormat
	out    io.Writer
}

// NewStreamer creates a streamer over an existing session store.
func NewStreamer(store *session.Store, format OutputFormat, out io.Writer) *Streamer {
	return &Streamer{store: store, format: format, out: out}
}

// Run streams events until ctx is done or the subscription fails.
func (s *Streamer) Run(ctx context.Context) error {
	sub, err := s.store.SubscribeChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session changes: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Errors():
			return fmt.Errorf("session subscription failed: %w", err)
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := s.write(*ev); err != nil {
				return err
			}
		}
	}
}

func (s *Streamer) write(ev line.ChangeEvent) error {
	out, err := FormatEvent(ev, s.format, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, out)
	return err
}

// jsonEvent is the line-delimited JSON rendering of a change event.
type jsonEvent struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	Source    string `json:"source"`
	Line      string `json:"line"`
	Forced    bool   `json:"forced,omitempty"`
}

// FormatEvent renders one change event in the given format.
func FormatEvent(ev line.ChangeEvent, format OutputFormat, at time.Time) (string, error) {
	switch format {
	case OutputFormatJSON:
		b, err := json.Marshal(jsonEvent{
			Timestamp: at.UTC().Format(time.RFC3339),
			ID:        ev.ID,
			Source:    ev.Source,
			Line:      ev.Line,
			Forced:    ev.Forced,
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal event: %w", err)
		}
		return string(b), nil
	default:
		shown := ev.Line
		if shown == "" {
			shown = "(starting position)"
		}
		return fmt.Sprintf("[%s] %-14s %s", at.Format("15:04:05"), ev.Source, shown), nil
	}
}
