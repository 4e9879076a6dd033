package player

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/ports"
	"github.com/lumen-signage/lumen/pkg/signage"
)

// Syncer reconciles the backend's view of this screen with the engine.
// It is deliberately stateless beyond the last applied playlist: every
// tick re-derives the target state, so missed or duplicated ticks are
// harmless.
type Syncer struct {
	log      *zap.Logger
	backend  ports.Backend
	engine   *Engine
	cache    *Cache
	resolver Resolver
	console  Console
	identity signage.Identity

	lastPlaylistID string
	lastItems      []signage.PlaylistItem
	applied        bool
}

// NewSyncer wires the sync loop collaborators.
func NewSyncer(log *zap.Logger, backend ports.Backend, engine *Engine, cache *Cache, resolver Resolver, console Console, identity signage.Identity) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if console == nil {
		console = NopConsole{}
	}
	return &Syncer{
		log:      log,
		backend:  backend,
		engine:   engine,
		cache:    cache,
		resolver: resolver,
		console:  console,
		identity: identity,
	}
}

// Tick runs one reconciliation pass.
func (s *Syncer) Tick(ctx context.Context) {
	screen, err := s.backend.ScreenByCode(ctx, s.identity.PairingCode)
	if err != nil {
		if signage.IsNotFound(err) {
			s.toPairing()
			return
		}
		s.log.Warn("screen fetch failed", zap.Error(err))
		return
	}

	// Liveness ping is fire and forget; a lost ping only delays the
	// dashboard's online indicator.
	go func() {
		if err := s.backend.PingScreen(ctx, s.identity.PairingCode); err != nil {
			s.log.Debug("ping failed", zap.Error(err))
		}
	}()

	if !screen.Active() {
		s.toPairing()
		return
	}

	if screen.CurrentPlaylistID == "" {
		s.apply(ctx, "", nil)
		return
	}

	playlist, err := s.backend.PlaylistByID(ctx, screen.CurrentPlaylistID)
	if err != nil {
		s.log.Warn("playlist fetch failed",
			zap.String("playlist_id", screen.CurrentPlaylistID), zap.Error(err))
		return
	}
	s.apply(ctx, playlist.ID, playlist.Items)
}

func (s *Syncer) toPairing() {
	s.lastPlaylistID = ""
	s.lastItems = nil
	s.applied = false
	s.engine.SetPairing(s.identity.PairingCode)
	s.console.ShowPairing(s.identity.PairingCode)
}

// apply hands the playlist to the engine only when its content actually
// changed; a byte-identical poll is a no-op so rotation position and
// timers survive it.
func (s *Syncer) apply(ctx context.Context, playlistID string, items []signage.PlaylistItem) {
	if s.applied && playlistID == s.lastPlaylistID && reflect.DeepEqual(items, s.lastItems) {
		return
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if err := signage.ValidateItem(item); err != nil {
			s.log.Warn("skipping invalid item", zap.String("item", item.UniqueID), zap.Error(err))
			continue
		}
		url, err := s.resolver.Resolve(item)
		if err != nil {
			s.log.Warn("skipping unresolvable item", zap.String("item", item.UniqueID), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{Item: item, URL: url})
	}

	if s.cache != nil && len(entries) > 0 {
		entries = s.cache.Warm(ctx, entries, s.console.Progress)
	}

	s.lastPlaylistID = playlistID
	// Copy: the backend client may reuse the fetched slice.
	s.lastItems = append([]signage.PlaylistItem(nil), items...)
	s.applied = true
	s.engine.SetPlaylist(entries)
	s.log.Info("playlist applied",
		zap.String("playlist_id", playlistID), zap.Int("items", len(entries)))
}
