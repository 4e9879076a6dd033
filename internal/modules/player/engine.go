package player

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// Engine states.
const (
	StateLoading = "loading"
	StatePairing = "pairing"
	StateIdle    = "idle"
	StatePlaying = "playing"
)

// DefaultImageDuration applies to stills with no explicit duration.
const DefaultImageDuration = 10 * time.Second

// Entry is one playable item with its final, local-first URL.
type Entry struct {
	Item signage.PlaylistItem
	URL  string
}

// CancelFunc cancels a pending timer.
type CancelFunc func()

// TimerFactory arms a one-shot timer. Tests substitute a deterministic
// implementation; production uses time.AfterFunc.
type TimerFactory func(d time.Duration, fn func()) CancelFunc

func afterFuncTimer(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Snapshot is the externally visible engine state.
type Snapshot struct {
	State               string
	Index               int
	Generation          uint64
	AwaitingInteraction bool
	PairingCode         string
}

// Engine drives the playback rotation. Every timer carries the playlist
// generation and the rotation iteration it was armed under; a callback
// whose generation or iteration no longer matches is a no-op, so neither
// a playlist replacement nor a same-generation advance that raced the
// timer's Stop can move the rotation twice.
type Engine struct {
	log    *zap.Logger
	driver Driver
	timers TimerFactory

	mu          sync.Mutex
	state       string
	entries     []Entry
	index       int
	generation  uint64
	iteration   uint64
	awaiting    bool
	pairingCode string
	cancelTimer CancelFunc
}

// NewEngine creates an engine in the Loading state.
func NewEngine(log *zap.Logger, driver Driver, timers TimerFactory) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if timers == nil {
		timers = afterFuncTimer
	}
	return &Engine{log: log, driver: driver, timers: timers, state: StateLoading}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:               e.state,
		Index:               e.index,
		Generation:          e.generation,
		AwaitingInteraction: e.awaiting,
		PairingCode:         e.pairingCode,
	}
}

// SetPlaylist replaces the rotation. The index resets to zero and the
// generation is bumped so timers armed for the old playlist go stale.
func (e *Engine) SetPlaylist(entries []Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.generation++
	e.index = 0
	e.awaiting = false
	e.entries = entries

	if len(entries) == 0 {
		e.state = StateIdle
		if e.driver != nil {
			if err := e.driver.Stop(); err != nil {
				e.log.Warn("driver stop", zap.Error(err))
			}
		}
		e.log.Info("playlist empty, idling")
		return
	}

	e.state = StatePlaying
	e.showCurrentLocked()
}

// SetPairing switches to the pairing display.
func (e *Engine) SetPairing(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StatePairing && e.pairingCode == code {
		return
	}
	e.stopTimerLocked()
	e.generation++
	e.state = StatePairing
	e.pairingCode = code
	e.entries = nil
	e.awaiting = false
	if e.driver != nil {
		if err := e.driver.Stop(); err != nil {
			e.log.Warn("driver stop", zap.Error(err))
		}
	}
	e.log.Info("awaiting pairing", zap.String("code", code))
}

// VideoEnded advances past the mounted video. Drivers keep at most one
// pipeline mounted, so an end event always refers to the current item;
// it is ignored unless that item is actually a video.
func (e *Engine) VideoEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying || len(e.entries) == 0 {
		return
	}
	if e.entries[e.index].Item.Type != signage.ItemVideo {
		return
	}
	e.advanceLocked()
}

// OnInteraction resumes playback after an autoplay block. The first
// gesture clears the overlay; later ones are no-ops.
func (e *Engine) OnInteraction() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.awaiting {
		return
	}
	e.awaiting = false
	if e.driver != nil {
		if err := e.driver.Resume(); err != nil {
			e.log.Warn("driver resume", zap.Error(err))
		}
	}
	e.log.Info("interaction received, resuming")
}

func (e *Engine) advanceLocked() {
	if len(e.entries) == 0 {
		return
	}
	e.index = (e.index + 1) % len(e.entries)
	e.showCurrentLocked()
}

func (e *Engine) showCurrentLocked() {
	e.stopTimerLocked()
	e.iteration++
	entry := e.entries[e.index]
	gen := e.generation

	switch entry.Item.Type {
	case signage.ItemVideo:
		err := e.driver.PlayVideo(entry.URL, true)
		switch {
		case errors.Is(err, ErrAutoplayBlocked):
			e.awaiting = true
			e.log.Info("autoplay blocked, waiting for interaction",
				zap.String("item", entry.Item.UniqueID))
		case err != nil:
			e.log.Warn("video start failed, advancing after fallback window",
				zap.String("item", entry.Item.UniqueID), zap.Error(err))
			e.armTimerLocked(DefaultImageDuration, gen)
		}
	default:
		if err := e.driver.ShowImage(entry.URL); err != nil {
			e.log.Warn("image display failed",
				zap.String("item", entry.Item.UniqueID), zap.Error(err))
		}
		e.armTimerLocked(imageDuration(entry.Item), gen)
	}
}

func (e *Engine) armTimerLocked(d time.Duration, gen uint64) {
	iter := e.iteration
	e.cancelTimer = e.timers(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.generation || iter != e.iteration || e.state != StatePlaying {
			return
		}
		e.advanceLocked()
	})
}

func (e *Engine) stopTimerLocked() {
	if e.cancelTimer != nil {
		e.cancelTimer()
		e.cancelTimer = nil
	}
}

func imageDuration(item signage.PlaylistItem) time.Duration {
	if item.DurationSeconds > 0 {
		return time.Duration(item.DurationSeconds * float64(time.Second))
	}
	return DefaultImageDuration
}
