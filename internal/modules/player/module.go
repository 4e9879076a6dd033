// Package player polls the hosted backend for this screen's playlist and
// rotates the assigned media on the output surface. First boot registers
// a pending screen and displays a pairing code until the dashboard claims
// it.
package player

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/adapters/idgen"
	"github.com/lumen-signage/lumen/internal/ports"
	"github.com/lumen-signage/lumen/pkg/signage"
)

// DefaultPollInterval is how often the backend is reconciled when no
// change event arrives.
const DefaultPollInterval = 5 * time.Second

// Config configures the player module.
type Config struct {
	StateDir     string
	CacheDir     string
	PollInterval time.Duration
	LocalBaseURL string
	Hostname     string
	CacheRetries int
}

// Module owns the player lifecycle: identity, sync loop, engine.
type Module struct {
	log      *zap.Logger
	backend  ports.Backend
	engine   *Engine
	syncer   *Syncer
	config   Config
	identity signage.Identity
}

// NewModule builds the player from its collaborators. driver renders the
// media; console is optional and defaults to the terminal renderer.
func NewModule(log *zap.Logger, backend ports.Backend, driver Driver, console Console, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if backend == nil {
		return nil, errors.New("backend required")
	}
	if driver == nil {
		return nil, errors.New("driver required")
	}
	if strings.TrimSpace(cfg.StateDir) == "" {
		return nil, errors.New("state_dir required")
	}
	if strings.TrimSpace(cfg.CacheDir) == "" {
		return nil, errors.New("cache_dir required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if console == nil {
		console = &TermConsole{}
	}

	identity, err := LoadOrCreateIdentity(NewIdentityStore(cfg.StateDir), idgen.Generator{})
	if err != nil {
		return nil, err
	}

	cache, err := NewCache(CacheOptions{
		Dir:     cfg.CacheDir,
		Retries: cfg.CacheRetries,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	engine := NewEngine(log, driver, nil)
	resolver := Resolver{
		BaseURL: cfg.LocalBaseURL,
		Local:   LocalContext(cfg.Hostname),
	}
	syncer := NewSyncer(log, backend, engine, cache, resolver, console, identity)

	return &Module{
		log:      log,
		backend:  backend,
		engine:   engine,
		syncer:   syncer,
		config:   cfg,
		identity: identity,
	}, nil
}

// Identity returns the persisted device identity.
func (m *Module) Identity() signage.Identity { return m.identity }

// Engine exposes the playback engine for surface integrations that need
// to report end-of-media and interaction events.
func (m *Module) Engine() *Engine { return m.engine }

// Run registers the screen, then reconciles on a fixed interval and on
// backend change events until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	screen, err := m.bootstrap(ctx)
	if err != nil {
		return err
	}

	events := m.watch(ctx, screen.ID)

	m.syncer.Tick(ctx)

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.syncer.Tick(ctx)
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.syncer.Tick(ctx)
		}
	}
}

// bootstrap retries registration until the backend is reachable; a
// player with no backend yet should wait, not die.
func (m *Module) bootstrap(ctx context.Context) (signage.Screen, error) {
	for {
		screen, err := Bootstrap(ctx, m.log, m.backend, m.identity)
		if err == nil {
			return screen, nil
		}
		if !signage.IsTransient(err) {
			return signage.Screen{}, err
		}
		m.log.Warn("backend unreachable, retrying", zap.Error(err))
		select {
		case <-ctx.Done():
			return signage.Screen{}, ctx.Err()
		case <-time.After(m.config.PollInterval):
		}
	}
}

func (m *Module) watch(ctx context.Context, screenID string) <-chan signage.ScreenEvent {
	events, err := m.backend.WatchScreen(ctx, screenID)
	if err != nil {
		m.log.Info("change feed unavailable, polling only", zap.Error(err))
		return nil
	}
	return events
}
