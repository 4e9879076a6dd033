package ports

import (
	"context"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// Backend is the hosted-backend collaborator the player polls. The player
// depends only on eventual delivery of a consistent (Screen, Playlist)
// pair and tolerates arbitrary delay and duplicate notifications.
type Backend interface {
	ScreenByCode(ctx context.Context, code string) (signage.Screen, error)
	PlaylistByID(ctx context.Context, id string) (signage.Playlist, error)
	UpsertScreen(ctx context.Context, screen signage.Screen) error
	PingScreen(ctx context.Context, code string) error
	WatchScreen(ctx context.Context, screenID string) (<-chan signage.ScreenEvent, error)
}

// IDGen returns unique device/correlation IDs.
type IDGen interface {
	NewID() string
}

// IdentityStore persists the device identity between restarts.
type IdentityStore interface {
	Load() (signage.Identity, bool, error)
	Save(identity signage.Identity) error
}
