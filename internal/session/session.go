// Package session mirrors the explorer's shared state (canonical line
// plus filters) into Redis, so a second process can observe or resume a
// session. The mirror is optional: the explorer is fully functional
// without a Redis address configured.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"openinglens/pkg/line"
)

// Snapshot is the persisted session state.
type Snapshot struct {
	Line        string `redis:"line"`
	TimeControl string `redis:"time_control"`
	Elo         string `redis:"elo"`
	Color       string `redis:"color"`
	Opening     string `redis:"opening"`
}

// Store provides session-scoped Redis operations. All keys and channels
// are namespaced by session name so multiple sessions coexist on one
// Redis server. Safe for concurrent use.
type Store struct {
	rdb     *redis.Client
	session string
}

// NewStore creates a session store. The session name must not be empty.
func NewStore(redisOpts *redis.Options, session string) (*Store, error) {
	if session == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}
	return &Store{
		rdb:     redis.NewClient(redisOpts),
		session: session,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// StateKey returns the Redis key for a session's state hash.
// Pattern: openinglens:{session}:state
func StateKey(session string) string {
	return fmt.Sprintf("openinglens:%s:state", session)
}

// LineEventsChannel returns the Pub/Sub channel for a session's line
// change events. Pattern: openinglens:{session}:line_events
func LineEventsChannel(session string) string {
	return fmt.Sprintf("openinglens:%s:line_events", session)
}

// Save writes the full snapshot to the session's state hash.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	key := StateKey(s.session)
	fields := map[string]interface{}{
		"line":         snap.Line,
		"time_control": snap.TimeControl,
		"elo":          snap.Elo,
		"color":        snap.Color,
		"opening":      snap.Opening,
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// Load reads the session snapshot. Returns redis.Nil (check with
// IsNotFound) when the session has never been saved.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	key := StateKey(s.session)
	hash, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read session state: %w", err)
	}
	if len(hash) == 0 {
		return Snapshot{}, redis.Nil
	}
	return Snapshot{
		Line:        hash["line"],
		TimeControl: hash["time_control"],
		Elo:         hash["elo"],
		Color:       hash["color"],
		Opening:     hash["opening"],
	}, nil
}

// PublishChange broadcasts a line change event to session followers and
// persists the new line in the state hash.
func (s *Store) PublishChange(ctx context.Context, ev line.ChangeEvent) error {
	key := StateKey(s.session)
	if err := s.rdb.HSet(ctx, key, "line", ev.Line).Err(); err != nil {
		return fmt.Errorf("failed to persist line: %w", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := s.rdb.Publish(ctx, LineEventsChannel(s.session), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscription is an active Pub/Sub subscription to a session's line
// events. Caller must call Close when done.
type Subscription struct {
	events <-chan *line.ChangeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of line change events. Closed when the
// subscription closes or the context is cancelled.
func (s *Subscription) Events() <-chan *line.ChangeEvent {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are
// non-fatal; malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChanges subscribes to the session's line change events.
// Events are delivered on a buffered channel; Redis Pub/Sub is
// at-most-once, so slow followers may miss events and should reconcile
// via Load.
func (s *Store) SubscribeChanges(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, LineEventsChannel(s.session))

	eventsChan := make(chan *line.ChangeEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev line.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
