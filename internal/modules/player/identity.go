package player

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/ports"
	"github.com/lumen-signage/lumen/pkg/signage"
)

// codeAlphabet excludes easily confused glyphs (I, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// IdentityStore persists the device identity as JSON under the state dir.
type IdentityStore struct {
	path string
	mu   sync.Mutex
}

// NewIdentityStore creates an identity store rooted at stateDir.
func NewIdentityStore(stateDir string) *IdentityStore {
	return &IdentityStore{path: filepath.Join(stateDir, "identity.json")}
}

// Load returns the stored identity if present.
func (s *IdentityStore) Load() (signage.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return signage.Identity{}, false, nil
		}
		return signage.Identity{}, false, err
	}

	var identity signage.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return signage.Identity{}, false, err
	}
	if identity.DeviceID == "" || identity.PairingCode == "" {
		return signage.Identity{}, false, nil
	}
	return identity, true, nil
}

// Save writes the identity to disk.
func (s *IdentityStore) Save(identity signage.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, payload, 0o600)
}

// NewPairingCode draws a 6-character code from the unambiguous alphabet.
func NewPairingCode() (string, error) {
	var buf [codeLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// LoadOrCreateIdentity returns the persisted identity, minting one on
// first boot. The identity never changes afterwards.
func LoadOrCreateIdentity(store ports.IdentityStore, idgen ports.IDGen) (signage.Identity, error) {
	identity, ok, err := store.Load()
	if err != nil {
		return signage.Identity{}, err
	}
	if ok {
		return identity, nil
	}

	code, err := NewPairingCode()
	if err != nil {
		return signage.Identity{}, err
	}
	identity = signage.Identity{DeviceID: idgen.NewID(), PairingCode: code}
	if err := store.Save(identity); err != nil {
		return signage.Identity{}, err
	}
	return identity, nil
}

// Bootstrap makes the device known to the backend. If no screen row exists
// for our code yet, a pending row named after the code is created so the
// dashboard can claim it.
func Bootstrap(ctx context.Context, log *zap.Logger, backend ports.Backend, identity signage.Identity) (signage.Screen, error) {
	screen, err := backend.ScreenByCode(ctx, identity.PairingCode)
	if err == nil {
		return screen, nil
	}
	if !signage.IsNotFound(err) {
		return signage.Screen{}, err
	}

	screen = signage.Screen{
		ID:          identity.DeviceID,
		Name:        fmt.Sprintf("TV-%s", identity.PairingCode),
		Status:      signage.ScreenPending,
		PairingCode: identity.PairingCode,
	}
	if err := backend.UpsertScreen(ctx, screen); err != nil {
		return signage.Screen{}, err
	}
	log.Info("registered pending screen",
		zap.String("screen_id", screen.ID),
		zap.String("code", identity.PairingCode),
	)
	return screen, nil
}
