package prefstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "user_prefs.json"))
}

func TestGetUnknownUser(t *testing.T) {
	s := newTestStore(t)
	prefs := s.Get("nobody")
	assert.NotNil(t, prefs)
	assert.Empty(t, prefs)
}

func TestGetCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	prefs := s.Get("demo")
	assert.Empty(t, prefs)
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert("demo", map[string]any{"pace": "relaxed", "interests": []string{"art"}})
	require.NoError(t, err)

	prefs := s.Get("demo")
	assert.Equal(t, "relaxed", prefs["pace"])
}

func TestUpsertShallowMerge(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Upsert("demo", map[string]any{"pace": "relaxed", "home": "Berlin"}))
	require.NoError(t, s.Upsert("demo", map[string]any{"pace": "packed"}))

	prefs := s.Get("demo")
	assert.Equal(t, "packed", prefs["pace"], "same key overwritten")
	assert.Equal(t, "Berlin", prefs["home"], "unrelated key kept")
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	prefs := map[string]any{"pace": "relaxed", "interests": []string{"art", "food"}}

	require.NoError(t, s.Upsert("demo", prefs))
	once := s.Get("demo")

	require.NoError(t, s.Upsert("demo", prefs))
	twice := s.Get("demo")

	assert.Equal(t, once, twice)
}

func TestUpsertKeepsOtherUsers(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Upsert("alice", map[string]any{"pace": "relaxed"}))
	require.NoError(t, s.Upsert("bob", map[string]any{"pace": "packed"}))

	assert.Equal(t, "relaxed", s.Get("alice")["pace"])
	assert.Equal(t, "packed", s.Get("bob")["pace"])
}
