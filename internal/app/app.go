// Package app wires the explorer's components into a running instance:
// the line store, the board controller, the tree navigator, the filter
// coordinator, and the optional Redis session mirror.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"openinglens/internal/anim"
	"openinglens/internal/board"
	"openinglens/internal/catalog"
	"openinglens/internal/config"
	"openinglens/internal/coordinator"
	"openinglens/internal/dataset"
	"openinglens/internal/rules"
	"openinglens/internal/session"
	"openinglens/internal/tree"
	"openinglens/pkg/line"
)

// Options configures callbacks for the surrounding UI shell.
type Options struct {
	OnRender  func()                     // fired after board/tree visual mutations; may be nil
	OnFilters func(coordinator.Filters)  // fired after every filter merge; may be nil
	Engine    rules.Factory              // defaults to rules.NewEngine
}

// App is the assembled explorer. All methods must be called from the
// same goroutine that runs the UI loop, matching the components it
// owns.
type App struct {
	Config *config.Config
	Store  *line.Store
	Tokens *anim.Counter
	Board  *board.Controller
	Tree   *tree.Navigator
	Coord  *coordinator.Coordinator

	mirror      *session.Store
	mirrorUnsub func()
	// published remembers event IDs this instance pushed to the mirror
	// so the follow goroutine can drop our own echoes. Guarded by
	// pubMu: the mirror hook writes it from the UI goroutine while the
	// follow goroutine reads it. Bounded to the newest publishedCap
	// IDs.
	pubMu     sync.Mutex
	published map[string]bool
	pubOrder  []string

	ctx context.Context
}

// publishedCap bounds the remembered echo IDs; anything older has long
// since been delivered or dropped by the pub/sub channel.
const publishedCap = 128

// New loads the assets named in cfg, builds the component graph, and
// performs the one-time startup load (source "init").
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	data, err := dataset.Load(cfg.Assets.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	cat, err := catalog.Load(cfg.Assets.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	factory := opts.Engine
	if factory == nil {
		factory = rules.NewEngine
	}

	store := line.NewStore()
	tokens := &anim.Counter{}

	bc := board.NewController(ctx, store, factory, tokens, board.Options{
		AnimTotal:   time.Duration(*cfg.Animation.ReplayTotalMs) * time.Millisecond,
		AnimPerStep: time.Duration(*cfg.Animation.ReplayStepMs) * time.Millisecond,
		OnRender:    opts.OnRender,
	})

	nav := tree.NewNavigator(ctx, data, cat, store, tokens, tree.Options{
		FocusDuration: time.Duration(*cfg.Animation.FocusMs) * time.Millisecond,
		FocusFrames:   *cfg.Animation.FocusFrames,
		OnRender:      opts.OnRender,
	})

	coord := coordinator.New(store, cat, nav, coordinator.Filters{
		TimeControl: cfg.Defaults.TimeControl,
		Elo:         cfg.Defaults.Elo,
		Color:       cfg.Defaults.Color,
		Opening:     cfg.Defaults.Opening,
	}, opts.OnFilters)

	a := &App{
		Config:    cfg,
		Store:     store,
		Tokens:    tokens,
		Board:     bc,
		Tree:      nav,
		Coord:     coord,
		published: make(map[string]bool),
		ctx:       ctx,
	}

	if cfg.Session != nil && cfg.Session.RedisAddr != "" {
		mirror, err := session.NewStore(&redis.Options{Addr: cfg.Session.RedisAddr}, cfg.Session.Name)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create session mirror: %w", err)
		}
		if err := mirror.Ping(ctx); err != nil {
			mirror.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Session.RedisAddr, err)
		}
		a.mirror = mirror
	}

	// One-time startup load. A non-default opening loads its base
	// prefix; otherwise force an empty broadcast so every surface
	// renders the starting position.
	if cfg.Defaults.Opening != catalog.AllOpening {
		name := cfg.Defaults.Opening
		coord.SetFilters(coordinator.Partial{Opening: &name},
			coordinator.Meta{SetBasePGN: true, Source: line.SourceInit})
	} else {
		store.Set("", line.Meta{Source: line.SourceInit, Force: true})
	}

	// The mirror attaches after the startup load so launching an
	// explorer does not clobber a resumable snapshot with the empty
	// init state.
	if a.mirror != nil {
		a.mirrorUnsub = store.Subscribe(a.mirrorChange)
	}

	return a, nil
}

// Close tears down subscriptions and the mirror connection.
func (a *App) Close() {
	if a.mirrorUnsub != nil {
		a.mirrorUnsub()
	}
	if a.mirror != nil {
		a.mirror.Close()
	}
	if a.Coord != nil {
		a.Coord.Close()
	}
	if a.Tree != nil {
		a.Tree.Close()
	}
	if a.Board != nil {
		a.Board.Close()
	}
}

// Reset clears the line and reverts the opening and color filters,
// bypassing the idempotence check so observers rebuild even from the
// starting position.
func (a *App) Reset() {
	a.Store.Set("", line.Meta{Source: line.SourceReset, Force: true})
}

// Flip reverses the board orientation and forces a re-broadcast so the
// board redraws from the other side without animation.
func (a *App) Flip() {
	if a.Board.Orientation() == rules.White {
		a.Board.SetOrientation(rules.Black)
	} else {
		a.Board.SetOrientation(rules.White)
	}
	a.Store.Set(a.Store.Line(), line.Meta{Source: line.SourceFlip, Force: true})
}

// SelectOpening applies an opening filter and loads its base prefix.
func (a *App) SelectOpening(name string) {
	a.Coord.SetFilters(coordinator.Partial{Opening: &name},
		coordinator.Meta{SetBasePGN: true})
}

// SetTimeControl changes the dataset slice without touching the line.
func (a *App) SetTimeControl(tc string) {
	a.Coord.SetFilters(coordinator.Partial{TimeControl: &tc}, coordinator.Meta{})
}

// SetElo changes the rating bracket without touching the line.
func (a *App) SetElo(elo string) {
	a.Coord.SetFilters(coordinator.Partial{Elo: &elo}, coordinator.Meta{})
}

// SetColor changes the stats color scope without touching the line.
func (a *App) SetColor(color string) {
	a.Coord.SetFilters(coordinator.Partial{Color: &color}, coordinator.Meta{})
}

// LoadPGN normalizes pasted movetext into the store; the coordinator
// detects the matching opening from the result.
func (a *App) LoadPGN(text string) {
	a.Store.Set(text, line.Meta{Source: line.SourcePGNDetect})
}

// HasMirror reports whether a Redis session mirror is attached.
func (a *App) HasMirror() bool {
	return a.mirror != nil
}

// rememberPublished records an event ID in the bounded echo set.
func (a *App) rememberPublished(id string) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.published[id] = true
	a.pubOrder = append(a.pubOrder, id)
	for len(a.pubOrder) > publishedCap {
		delete(a.published, a.pubOrder[0])
		a.pubOrder = a.pubOrder[1:]
	}
}

// wasPublished reports and consumes an echo ID.
func (a *App) wasPublished(id string) bool {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	if !a.published[id] {
		return false
	}
	delete(a.published, id)
	return true
}

// mirrorChange pushes every local line change to the session mirror and
// persists a snapshot of the current state.
func (a *App) mirrorChange(ev line.ChangeEvent) {
	a.rememberPublished(ev.ID)
	if err := a.mirror.PublishChange(a.ctx, ev); err != nil {
		log.Printf("session mirror publish failed: %v", err)
	}
	f := a.Coord.Filters()
	snap := session.Snapshot{
		Line:        ev.Line,
		TimeControl: f.TimeControl,
		Elo:         f.Elo,
		Color:       f.Color,
		Opening:     f.Opening,
	}
	if err := a.mirror.Save(a.ctx, snap); err != nil {
		log.Printf("session mirror save failed: %v", err)
	}
}

// Resume restores a previously mirrored session: filters first, then
// the line, so the hierarchy is already built when the line lands.
func (a *App) Resume(ctx context.Context) error {
	if a.mirror == nil {
		return fmt.Errorf("no session mirror configured")
	}
	snap, err := a.mirror.Load(ctx)
	if err != nil {
		if session.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to load session snapshot: %w", err)
	}
	a.Coord.SetFilters(coordinator.Partial{
		TimeControl: &snap.TimeControl,
		Elo:         &snap.Elo,
		Color:       &snap.Color,
		Opening:     &snap.Opening,
	}, coordinator.Meta{})
	a.Store.Set(snap.Line, line.Meta{Source: line.SourceInit, Force: true})
	return nil
}

// Follow subscribes to the mirror's change channel and forwards remote
// events on the returned channel until ctx is done. Events this
// instance published are dropped. The channel is closed when the
// subscription ends.
//
// The forwarding goroutine never touches the store: the caller drains
// the channel on the UI goroutine and applies each event with
// ApplyRemote, keeping all store mutation single-goroutine.
func (a *App) Follow(ctx context.Context) (<-chan line.ChangeEvent, error) {
	if a.mirror == nil {
		return nil, fmt.Errorf("no session mirror configured")
	}
	sub, err := a.mirror.SubscribeChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session changes: %w", err)
	}

	out := make(chan line.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Errors():
				log.Printf("session subscription failed: %v", err)
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if a.wasPublished(ev.ID) {
					continue
				}
				select {
				case out <- *ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ApplyRemote folds a followed event into the local store. Must run on
// the same goroutine as every other store mutation; the store's
// idempotence check breaks any remaining echo cycle.
func (a *App) ApplyRemote(ev line.ChangeEvent) {
	a.Store.Set(ev.Line, line.Meta{Source: ev.Source})
}
