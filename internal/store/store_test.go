package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)
	return s
}

func TestAuthAbsentByDefault(t *testing.T) {
	s := openTestStore(t)
	assert.Nil(t, s.Auth())
	assert.Empty(t, s.AuthToken())
}

func TestSetAuthWritesPair(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetAuth(AuthRecord{User: User{DisplayName: "Jo"}, Token: "abc"}))

	rec := s.Auth()
	require.NotNil(t, rec)
	assert.Equal(t, "Jo", rec.User.DisplayName)
	assert.Equal(t, "abc", rec.Token)

	// Reopen from disk: the pair round-trips.
	again, err := Open(s.path)
	require.NoError(t, err)
	rec = again.Auth()
	require.NotNil(t, rec)
	assert.Equal(t, "abc", rec.Token)
}

func TestClearAuthIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetAuth(AuthRecord{User: User{DisplayName: "Jo"}, Token: "abc"}))
	require.NoError(t, s.ClearAuth())
	assert.Nil(t, s.Auth())

	// Clearing again when already logged out is a no-op.
	require.NoError(t, s.ClearAuth())
	assert.Nil(t, s.Auth())
}

func TestPartialPairReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")
	// A file with only a token (written by something else) must not surface
	// as a logged-in state.
	require.NoError(t, os.WriteFile(path, []byte(`{"authToken":"abc"}`), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Nil(t, s.Auth())
}

func TestSubscribeNotifiesOnAuthChange(t *testing.T) {
	s := openTestStore(t)

	var keys []string
	unsub := s.Subscribe(func(key string) { keys = append(keys, key) })

	require.NoError(t, s.SetAuth(AuthRecord{User: User{DisplayName: "Jo"}, Token: "abc"}))
	require.NoError(t, s.ClearAuth())
	require.NoError(t, s.SetGeminiAPIKey("k"))

	assert.Equal(t, []string{KeyAuthToken, KeyAuthToken, KeyGeminiAPIKey}, keys)

	unsub()
	require.NoError(t, s.SetGeminiAPIKey("k2"))
	assert.Len(t, keys, 3)
}

func TestStoreFileShape(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetAuth(AuthRecord{User: User{DisplayName: "Jo", PhotoURL: "http://x/p.png"}, Token: "abc"}))
	require.NoError(t, s.SetGeminiAPIKey("secret"))

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "user")
	assert.Contains(t, raw, "authToken")
	assert.Contains(t, raw, "geminiApiKey")
}

func TestGeminiKeyRoundTrip(t *testing.T) {
	s := openTestStore(t)
	assert.Empty(t, s.GeminiAPIKey())
	require.NoError(t, s.SetGeminiAPIKey("secret"))
	assert.Equal(t, "secret", s.GeminiAPIKey())
}
