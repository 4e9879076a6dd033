package signage

import (
	"encoding/json"
	"errors"
	"strings"
)

// Screen status values as reported by the backend.
const (
	ScreenPending = "pending"
	ScreenOnline  = "online"
	ScreenOffline = "offline"
)

// Screen is the backend's row for a paired (or pairing) display device.
// The player only reads it and pings it; the dashboard owns its lifecycle.
type Screen struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	PairingCode       string `json:"pairing_code"`
	CurrentPlaylistID string `json:"current_playlist_id,omitempty"`
	LastPing          int64  `json:"last_ping,omitempty"`
}

// Active reports whether the screen has been claimed in the dashboard.
// Older backend rows used "active" where newer ones use "online".
func (s Screen) Active() bool {
	return s.Status == ScreenOnline || s.Status == "active"
}

// Playlist is an ordered sequence of playable items, owned by the
// dashboard and consumed read-only by the player.
type Playlist struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []PlaylistItem `json:"items"`
}

// Item types.
const (
	ItemImage = "image"
	ItemVideo = "video"
)

// PlaylistItem is one playable unit. Exactly one of URL or RelativePath is
// authoritative for fetching; Path and Name are legacy fields kept for
// playlists written by older dashboard versions. DurationSeconds applies to
// stills only; video duration is intrinsic to the media.
type PlaylistItem struct {
	UniqueID        string  `json:"uniqueId"`
	Type            string  `json:"type"`
	Name            string  `json:"name,omitempty"`
	URL             string  `json:"url,omitempty"`
	RelativePath    string  `json:"relativePath,omitempty"`
	Path            string  `json:"path,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// ValidateItem checks the fields the player relies on.
func ValidateItem(item PlaylistItem) error {
	if item.Type != ItemImage && item.Type != ItemVideo {
		return errors.New("item type must be image or video")
	}
	if strings.TrimSpace(item.URL) == "" &&
		strings.TrimSpace(item.RelativePath) == "" &&
		strings.TrimSpace(item.Path) == "" &&
		strings.TrimSpace(item.Name) == "" {
		return errors.New("item has no resolvable source")
	}
	return nil
}

// Identity is the per-install device identity, generated once and
// persisted locally. Immutable thereafter except regeneration if missing.
type Identity struct {
	DeviceID    string `json:"deviceId"`
	PairingCode string `json:"pairingCode"`
}

// ScreenEvent is published on the change feed when a screen row changes.
type ScreenEvent struct {
	ScreenID string          `json:"screenId"`
	Type     string          `json:"type"`
	TS       int64           `json:"ts"`
	Row      json.RawMessage `json:"row,omitempty"`
}
