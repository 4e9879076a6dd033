package player

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// stubBackend supplies default method implementations for test backends.
type stubBackend struct{}

func (stubBackend) ScreenByCode(ctx context.Context, code string) (signage.Screen, error) {
	return signage.Screen{}, signage.NewError(signage.KindNotFound, "no screen")
}

func (stubBackend) PlaylistByID(ctx context.Context, id string) (signage.Playlist, error) {
	return signage.Playlist{}, signage.NewError(signage.KindNotFound, "no playlist")
}

func (stubBackend) UpsertScreen(ctx context.Context, screen signage.Screen) error { return nil }

func (stubBackend) PingScreen(ctx context.Context, code string) error { return nil }

func (stubBackend) WatchScreen(ctx context.Context, screenID string) (<-chan signage.ScreenEvent, error) {
	return nil, signage.NewError(signage.KindInvalid, "no change feed")
}

type syncBackend struct {
	stubBackend
	mu       sync.Mutex
	screen   signage.Screen
	playlist signage.Playlist
	missing  bool
	pings    int
}

func (b *syncBackend) ScreenByCode(ctx context.Context, code string) (signage.Screen, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.missing {
		return signage.Screen{}, signage.NewError(signage.KindNotFound, "no screen")
	}
	return b.screen, nil
}

func (b *syncBackend) PlaylistByID(ctx context.Context, id string) (signage.Playlist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playlist, nil
}

func (b *syncBackend) PingScreen(ctx context.Context, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pings++
	return nil
}

type fakeConsole struct {
	mu       sync.Mutex
	codes    []string
	progress []int
}

func (c *fakeConsole) ShowPairing(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
}

func (c *fakeConsole) Progress(done int, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, done)
}

func newTestSyncer(backend *syncBackend) (*Syncer, *Engine, *fakeConsole) {
	engine := NewEngine(zap.NewNop(), &fakeDriver{}, (&fakeTimers{}).factory)
	console := &fakeConsole{}
	resolver := Resolver{BaseURL: "http://127.0.0.1:11222", Local: true}
	identity := signage.Identity{DeviceID: "dev-1", PairingCode: "ABC234"}
	syncer := NewSyncer(zap.NewNop(), backend, engine, nil, resolver, console, identity)
	return syncer, engine, console
}

func testPlaylist() signage.Playlist {
	return signage.Playlist{
		ID:   "pl-1",
		Name: "Lobby",
		Items: []signage.PlaylistItem{
			{UniqueID: "a", Type: signage.ItemImage, RelativePath: "a.jpg", DurationSeconds: 3},
			{UniqueID: "b", Type: signage.ItemVideo, RelativePath: "b.mp4"},
		},
	}
}

func TestTickAppliesAssignedPlaylist(t *testing.T) {
	backend := &syncBackend{
		screen:   signage.Screen{ID: "s-1", Status: signage.ScreenOnline, CurrentPlaylistID: "pl-1"},
		playlist: testPlaylist(),
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())

	snap := engine.Snapshot()
	if snap.State != StatePlaying || snap.Index != 0 {
		t.Fatalf("expected playing at 0, got %+v", snap)
	}
}

func TestIdenticalPollIsNoOp(t *testing.T) {
	backend := &syncBackend{
		screen:   signage.Screen{ID: "s-1", Status: signage.ScreenOnline, CurrentPlaylistID: "pl-1"},
		playlist: testPlaylist(),
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())
	gen := engine.Snapshot().Generation

	syncer.Tick(context.Background())
	syncer.Tick(context.Background())

	if got := engine.Snapshot().Generation; got != gen {
		t.Fatalf("identical polls reset the engine: generation %d -> %d", gen, got)
	}
}

func TestDurationChangeReapplies(t *testing.T) {
	backend := &syncBackend{
		screen:   signage.Screen{ID: "s-1", Status: signage.ScreenOnline, CurrentPlaylistID: "pl-1"},
		playlist: testPlaylist(),
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())
	gen := engine.Snapshot().Generation

	backend.mu.Lock()
	backend.playlist.Items[0].DurationSeconds = 7
	backend.mu.Unlock()

	syncer.Tick(context.Background())

	snap := engine.Snapshot()
	if snap.Generation == gen {
		t.Fatalf("expected reapply after duration change")
	}
	if snap.Index != 0 {
		t.Fatalf("expected index reset, got %d", snap.Index)
	}
}

func TestMissingScreenShowsPairingCode(t *testing.T) {
	backend := &syncBackend{missing: true}
	syncer, engine, console := newTestSyncer(backend)

	syncer.Tick(context.Background())

	if snap := engine.Snapshot(); snap.State != StatePairing {
		t.Fatalf("expected pairing, got %s", snap.State)
	}
	console.mu.Lock()
	defer console.mu.Unlock()
	if len(console.codes) != 1 || console.codes[0] != "ABC234" {
		t.Fatalf("expected pairing code shown, got %v", console.codes)
	}
}

func TestUnclaimedScreenShowsPairingCode(t *testing.T) {
	backend := &syncBackend{
		screen: signage.Screen{ID: "s-1", Status: signage.ScreenPending, PairingCode: "ABC234"},
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())

	if snap := engine.Snapshot(); snap.State != StatePairing {
		t.Fatalf("expected pairing for pending screen, got %s", snap.State)
	}
}

func TestLegacyActiveStatusPlays(t *testing.T) {
	backend := &syncBackend{
		screen:   signage.Screen{ID: "s-1", Status: "active", CurrentPlaylistID: "pl-1"},
		playlist: testPlaylist(),
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())

	if snap := engine.Snapshot(); snap.State != StatePlaying {
		t.Fatalf("expected legacy active treated as online, got %s", snap.State)
	}
}

func TestNoAssignedPlaylistIdles(t *testing.T) {
	backend := &syncBackend{
		screen: signage.Screen{ID: "s-1", Status: signage.ScreenOnline},
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())

	if snap := engine.Snapshot(); snap.State != StateIdle {
		t.Fatalf("expected idle with no playlist, got %s", snap.State)
	}
}

func TestInvalidItemsSkipped(t *testing.T) {
	playlist := testPlaylist()
	playlist.Items = append(playlist.Items, signage.PlaylistItem{UniqueID: "bad", Type: "marquee"})
	backend := &syncBackend{
		screen:   signage.Screen{ID: "s-1", Status: signage.ScreenOnline, CurrentPlaylistID: "pl-1"},
		playlist: playlist,
	}
	syncer, engine, _ := newTestSyncer(backend)

	syncer.Tick(context.Background())

	if snap := engine.Snapshot(); snap.State != StatePlaying {
		t.Fatalf("expected playing despite invalid item, got %s", snap.State)
	}
}
