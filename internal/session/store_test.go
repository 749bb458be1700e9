package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() *State {
	return &State{
		SavedAt: time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC),
		Origin:  "https://admin.shopify.com",
		Cookies: []*network.Cookie{
			{Name: "_session", Value: "abc123", Domain: ".shopify.com", Path: "/", Secure: true, HTTPOnly: true},
		},
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"), false, "", slog.Default())

	state, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, state)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, false, "", slog.Default())

	require.NoError(t, store.Save(testState()))

	loaded, found, err := NewStore(path, false, "", slog.Default()).Load()
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "_session", loaded.Cookies[0].Name)
	assert.Equal(t, "https://admin.shopify.com", loaded.Origin)
}

func TestStore_SaveIsWriteOncePerRun(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"), false, "", slog.Default())

	require.NoError(t, store.Save(testState()))
	err := store.Save(testState())
	assert.Error(t, err)
}

func TestStore_SealedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, true, "machine-secret", slog.Default())

	require.NoError(t, store.Save(testState()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abc123", "cookie values must not be stored in the clear")

	loaded, found, err := NewStore(path, true, "machine-secret", slog.Default()).Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc123", loaded.Cookies[0].Value)
}

func TestStore_SealedWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, NewStore(path, true, "right", slog.Default()).Save(testState()))

	_, _, err := NewStore(path, true, "wrong", slog.Default()).Load()
	assert.Error(t, err)
}

// A plaintext file written by an earlier version (or by hand) still loads
// when sealing is enabled.
func TestStore_PlaintextUpgradePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, NewStore(path, false, "", slog.Default()).Save(testState()))

	loaded, found, err := NewStore(path, true, "secret", slog.Default()).Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "_session", loaded.Cookies[0].Name)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, _, err := NewStore(path, false, "", slog.Default()).Load()
	assert.Error(t, err)
}

func TestStore_SaveStampsTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, false, "", slog.Default())

	state := testState()
	state.SavedAt = time.Time{}
	require.NoError(t, store.Save(state))

	loaded, _, err := NewStore(path, false, "", slog.Default()).Load()
	require.NoError(t, err)
	assert.False(t, loaded.SavedAt.IsZero())
}
