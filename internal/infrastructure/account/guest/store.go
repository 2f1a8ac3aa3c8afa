// Package guest persists the per-device identity used before sign-in.
// The file lives outside the entity store so wiping local data does not
// orphan the records a guest already owns.
package guest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	idgen "github.com/riskibarqy/touchline/internal/platform/id"
)

const defaultPath = "~/.config/touchline/identity.toml"

// State is the content of the identity file.
type State struct {
	GuestID   string    `toml:"guest_id"`
	CreatedAt time.Time `toml:"created_at"`
	// LastUserID is the last account verified on this device, keyed by a
	// hash of the token it was verified with. It lets an offline device keep
	// writing as the signed-in user.
	LastUserID     string    `toml:"last_user_id,omitempty"`
	LastTokenHash  string    `toml:"last_token_hash,omitempty"`
	LastVerifiedAt time.Time `toml:"last_verified_at,omitempty"`
}

type Store struct {
	path  string
	idGen idgen.Generator
	now   func() time.Time

	mu    sync.Mutex
	state *State
}

func DefaultPath() string {
	return defaultPath
}

func NewStore(path string, idGen idgen.Generator) *Store {
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}
	if idGen == nil {
		idGen = idgen.NewRandomGenerator()
	}
	return &Store{path: path, idGen: idGen, now: time.Now}
}

// GuestID returns the device guest id, minting and persisting one on first use.
func (s *Store) GuestID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return "", err
	}
	if state.GuestID != "" {
		return state.GuestID, nil
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate guest id: %w", err)
	}
	next := *state
	next.GuestID = "guest-" + id
	next.CreatedAt = s.now().UTC()
	if err := s.saveLocked(next); err != nil {
		return "", err
	}
	return next.GuestID, nil
}

// RememberUser records a successful verification of tokenHash as userID.
func (s *Store) RememberUser(userID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if state.LastUserID == userID && state.LastTokenHash == tokenHash {
		return nil
	}

	next := *state
	next.LastUserID = userID
	next.LastTokenHash = tokenHash
	next.LastVerifiedAt = s.now().UTC()
	return s.saveLocked(next)
}

// LastUser returns the user last verified with tokenHash.
func (s *Store) LastUser(tokenHash string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil || state.LastUserID == "" || state.LastTokenHash != tokenHash {
		return "", false
	}
	return state.LastUserID, true
}

// Forget drops the remembered account, for example on sign-out.
func (s *Store) Forget() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	next := *state
	next.LastUserID, next.LastTokenHash, next.LastVerifiedAt = "", "", time.Time{}
	return s.saveLocked(next)
}

func (s *Store) loadLocked() (*State, error) {
	if s.state != nil {
		return s.state, nil
	}

	resolved, err := expandPath(s.path)
	if err != nil {
		return nil, err
	}

	state := &State{}
	raw, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read identity file: %w", err)
	default:
		if err := toml.Unmarshal(raw, state); err != nil {
			return nil, fmt.Errorf("parse identity file %s: %w", resolved, err)
		}
	}

	s.state = state
	return state, nil
}

func (s *Store) saveLocked(next State) error {
	resolved, err := expandPath(s.path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	raw, err := toml.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal identity file: %w", err)
	}

	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		return fmt.Errorf("replace identity file: %w", err)
	}

	s.state = &next
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
