package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/pkg/signage"
)

type fakeDriver struct {
	mu       sync.Mutex
	images   []string
	videos   []string
	resumes  int
	stops    int
	videoErr error
}

func (d *fakeDriver) ShowImage(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.images = append(d.images, url)
	return nil
}

func (d *fakeDriver) PlayVideo(url string, muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.videoErr != nil {
		return d.videoErr
	}
	d.videos = append(d.videos, url)
	return nil
}

func (d *fakeDriver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

type fakeTimer struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
}

func (f *fakeTimers) factory(d time.Duration, fn func()) CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	f.armed = append(f.armed, t)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		t.cancelled = true
	}
}

func (f *fakeTimers) last(t *testing.T) *fakeTimer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.armed) == 0 {
		t.Fatalf("no timer armed")
	}
	return f.armed[len(f.armed)-1]
}

func testEntries() []Entry {
	return []Entry{
		{
			Item: signage.PlaylistItem{UniqueID: "a", Type: signage.ItemImage, DurationSeconds: 3},
			URL:  "file:///cache/a.jpg",
		},
		{
			Item: signage.PlaylistItem{UniqueID: "b", Type: signage.ItemVideo},
			URL:  "file:///cache/b.mp4",
		},
	}
}

func TestRotationImageThenVideoWraps(t *testing.T) {
	driver := &fakeDriver{}
	timers := &fakeTimers{}
	engine := NewEngine(zap.NewNop(), driver, timers.factory)

	engine.SetPlaylist(testEntries())

	snap := engine.Snapshot()
	if snap.State != StatePlaying || snap.Index != 0 {
		t.Fatalf("expected playing at 0, got %+v", snap)
	}
	if len(driver.images) != 1 {
		t.Fatalf("expected image shown, got %v", driver.images)
	}

	timer := timers.last(t)
	if timer.d != 3*time.Second {
		t.Fatalf("expected 3s timer, got %v", timer.d)
	}
	timer.fn()

	snap = engine.Snapshot()
	if snap.Index != 1 {
		t.Fatalf("expected index 1, got %d", snap.Index)
	}
	if len(driver.videos) != 1 {
		t.Fatalf("expected video started, got %v", driver.videos)
	}

	engine.VideoEnded()

	snap = engine.Snapshot()
	if snap.Index != 0 {
		t.Fatalf("expected wrap to 0, got %d", snap.Index)
	}
	if len(driver.images) != 2 {
		t.Fatalf("expected image shown again, got %v", driver.images)
	}
}

func TestDefaultImageDuration(t *testing.T) {
	driver := &fakeDriver{}
	timers := &fakeTimers{}
	engine := NewEngine(zap.NewNop(), driver, timers.factory)

	engine.SetPlaylist([]Entry{{
		Item: signage.PlaylistItem{UniqueID: "a", Type: signage.ItemImage},
		URL:  "file:///cache/a.png",
	}})

	if timer := timers.last(t); timer.d != DefaultImageDuration {
		t.Fatalf("expected default duration, got %v", timer.d)
	}
}

func TestPlaylistReplacementCancelsStaleTimer(t *testing.T) {
	driver := &fakeDriver{}
	timers := &fakeTimers{}
	engine := NewEngine(zap.NewNop(), driver, timers.factory)

	engine.SetPlaylist(testEntries())
	stale := timers.last(t)

	replacement := []Entry{
		{Item: signage.PlaylistItem{UniqueID: "x", Type: signage.ItemImage}, URL: "file:///cache/x.png"},
		{Item: signage.PlaylistItem{UniqueID: "y", Type: signage.ItemImage}, URL: "file:///cache/y.png"},
	}
	engine.SetPlaylist(replacement)

	if !stale.cancelled {
		t.Fatalf("expected stale timer cancelled")
	}
	snap := engine.Snapshot()
	if snap.Index != 0 {
		t.Fatalf("expected index reset, got %d", snap.Index)
	}

	// Even if the stale callback fires anyway, its generation no longer
	// matches and it must not advance the new rotation.
	stale.fn()
	if snap := engine.Snapshot(); snap.Index != 0 {
		t.Fatalf("stale timer advanced new playlist to %d", snap.Index)
	}
}

func TestFallbackTimerStaleAfterVideoEnded(t *testing.T) {
	driver := &fakeDriver{videoErr: errors.New("decode failed")}
	timers := &fakeTimers{}
	engine := NewEngine(zap.NewNop(), driver, timers.factory)

	engine.SetPlaylist([]Entry{
		{Item: signage.PlaylistItem{UniqueID: "v", Type: signage.ItemVideo}, URL: "file:///cache/v.mp4"},
		{Item: signage.PlaylistItem{UniqueID: "a", Type: signage.ItemImage, DurationSeconds: 3}, URL: "file:///cache/a.jpg"},
	})

	// The failed video start arms a fallback timer for the rotation step.
	fallback := timers.last(t)
	if fallback.d != DefaultImageDuration {
		t.Fatalf("expected fallback window timer, got %v", fallback.d)
	}

	// The driver reports the end first; the rotation moves on to the image.
	engine.VideoEnded()
	if snap := engine.Snapshot(); snap.Index != 1 {
		t.Fatalf("expected index 1 after video end, got %d", snap.Index)
	}

	// The fallback timer was armed under the same playlist generation but
	// an earlier rotation step; firing it now must not advance again.
	fallback.fn()
	if snap := engine.Snapshot(); snap.Index != 1 {
		t.Fatalf("stale fallback timer advanced rotation to %d", snap.Index)
	}

	// The image's own timer still drives the next step.
	timers.last(t).fn()
	if snap := engine.Snapshot(); snap.Index != 0 {
		t.Fatalf("expected wrap to 0, got %d", snap.Index)
	}
}

func TestEmptyPlaylistIdles(t *testing.T) {
	driver := &fakeDriver{}
	engine := NewEngine(zap.NewNop(), driver, (&fakeTimers{}).factory)

	engine.SetPlaylist(nil)

	if snap := engine.Snapshot(); snap.State != StateIdle {
		t.Fatalf("expected idle, got %s", snap.State)
	}
	if driver.stops != 1 {
		t.Fatalf("expected driver stopped")
	}
}

func TestAutoplayBlockedWaitsForInteraction(t *testing.T) {
	driver := &fakeDriver{videoErr: ErrAutoplayBlocked}
	engine := NewEngine(zap.NewNop(), driver, (&fakeTimers{}).factory)

	engine.SetPlaylist([]Entry{{
		Item: signage.PlaylistItem{UniqueID: "v", Type: signage.ItemVideo},
		URL:  "file:///cache/v.mp4",
	}})

	if snap := engine.Snapshot(); !snap.AwaitingInteraction {
		t.Fatalf("expected awaiting interaction")
	}

	engine.OnInteraction()

	snap := engine.Snapshot()
	if snap.AwaitingInteraction {
		t.Fatalf("expected overlay cleared")
	}
	if driver.resumes != 1 {
		t.Fatalf("expected driver resumed")
	}

	// Later gestures are no-ops.
	engine.OnInteraction()
	if driver.resumes != 1 {
		t.Fatalf("expected single resume, got %d", driver.resumes)
	}
}

func TestPairingStopsPlayback(t *testing.T) {
	driver := &fakeDriver{}
	engine := NewEngine(zap.NewNop(), driver, (&fakeTimers{}).factory)

	engine.SetPlaylist(testEntries())
	engine.SetPairing("ABC234")

	snap := engine.Snapshot()
	if snap.State != StatePairing || snap.PairingCode != "ABC234" {
		t.Fatalf("expected pairing state, got %+v", snap)
	}
	if driver.stops != 1 {
		t.Fatalf("expected driver stopped")
	}

	// Re-announcing the same code must not churn the display.
	engine.SetPairing("ABC234")
	if driver.stops != 1 {
		t.Fatalf("expected no extra stop, got %d", driver.stops)
	}
}

func TestVideoEndedIgnoredForImages(t *testing.T) {
	driver := &fakeDriver{}
	engine := NewEngine(zap.NewNop(), driver, (&fakeTimers{}).factory)

	engine.SetPlaylist([]Entry{{
		Item: signage.PlaylistItem{UniqueID: "a", Type: signage.ItemImage},
		URL:  "file:///cache/a.png",
	}})

	engine.VideoEnded()
	if snap := engine.Snapshot(); snap.Index != 0 {
		t.Fatalf("expected image unaffected, got index %d", snap.Index)
	}
}
