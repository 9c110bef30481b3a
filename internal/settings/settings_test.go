package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, "gemini", s.Provider)
	assert.InDelta(t, 0.2, s.Temperature, 0.001)
	assert.Empty(t, s.CachedOwnerID)
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	s, err := Load(writeFile(t, "{not json"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", s.Provider)
}

func TestLoadCurrentShape(t *testing.T) {
	s, err := Load(writeFile(t, `{"version":3,"provider":"openai","model":"gpt-4o-mini","temperature":0.7,"cached_owner_id":"user-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "gpt-4o-mini", s.Model)
	assert.InDelta(t, 0.7, s.Temperature, 0.001)
	assert.Equal(t, "user-1", s.CachedOwnerID)
}

func TestMigrateV1ProviderRename(t *testing.T) {
	s, err := Load(writeFile(t, `{"default_provider":"anthropic"}`))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, "anthropic", s.Provider)
}

func TestMigrateV2StringTemperature(t *testing.T) {
	s, err := Load(writeFile(t, `{"version":2,"provider":"openai","temperature":"0.55"}`))
	require.NoError(t, err)
	assert.InDelta(t, 0.55, s.Temperature, 0.001)

	// unparseable value falls back to the default
	s, err = Load(writeFile(t, `{"version":2,"temperature":"warm"}`))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, s.Temperature, 0.001)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := &Settings{Provider: "deepseek", Model: "deepseek-chat", Temperature: 0.4, CachedOwnerID: "user-9"}
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.Equal(t, "deepseek", loaded.Provider)
	assert.Equal(t, "user-9", loaded.CachedOwnerID)
}

func TestClearIdentity(t *testing.T) {
	s := &Settings{CachedOwnerID: "user-1", Provider: "gemini"}
	s.ClearIdentity()
	assert.Empty(t, s.CachedOwnerID)
	assert.Equal(t, "gemini", s.Provider, "non-identity preferences survive sign-out")
}
