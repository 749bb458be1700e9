// Package session persists authenticated browser session state across runs.
// The state file is loaded whole at run start and written whole at most once
// per run, immediately after a fresh login. Expiry is detected by the
// acquisition layer, never predicted here.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"chanperf/internal/security"
)

// State is the persisted authenticated-session blob: the cookie jar captured
// from the browser context after login.
type State struct {
	SavedAt time.Time         `json:"saved_at"`
	Origin  string            `json:"origin"`
	Cookies []*network.Cookie `json:"cookies"`
}

// Store manages the session state file.
type Store struct {
	path   string
	seal   bool
	secret string
	logger *slog.Logger

	mu    sync.Mutex
	saved bool
}

// NewStore creates a store for the state file at path. When seal is true the
// blob is encrypted at rest under secret.
func NewStore(path string, seal bool, secret string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, seal: seal, secret: secret, logger: logger}
}

// Load reads the persisted session state. A missing file is not an error; it
// reports found=false, meaning the run starts unauthenticated.
func (s *Store) Load() (*State, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session file %s: %w", s.path, err)
	}

	if security.IsSealed(data) {
		data, err = security.Open(data, s.secret)
		if err != nil {
			return nil, false, fmt.Errorf("unseal session file %s: %w", s.path, err)
		}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("decode session file %s: %w", s.path, err)
	}

	s.logger.Info("loaded persisted session state",
		slog.String("path", s.path),
		slog.Int("cookies", len(state.Cookies)),
		slog.Time("saved_at", state.SavedAt))
	return &state, true, nil
}

// Save persists the session state. The store enforces the write-once-per-run
// contract: a second Save in the same process is rejected.
func (s *Store) Save(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved {
		return fmt.Errorf("session state already saved this run")
	}

	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if s.seal {
		data, err = security.Seal(data, s.secret)
		if err != nil {
			return fmt.Errorf("seal session state: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	// 0600: the file carries live authentication cookies.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file %s: %w", s.path, err)
	}

	s.saved = true
	s.logger.Info("saved session state",
		slog.String("path", s.path),
		slog.Int("cookies", len(state.Cookies)),
		slog.Bool("sealed", s.seal))
	return nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}
