package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing written until the first change")
}

func TestNewConfigStore_Errors(t *testing.T) {
	_, err := NewConfigStore("/dev/null/cannot/create/dirs")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not toml {{{[["), 0o600))
	_, err = NewConfigStore(dir)
	assert.ErrorContains(t, err, "parsing")
}

func TestConfigStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("server.url", "https://bi.example.com"))
	require.NoError(t, store.Set("server.requests_per_second", 2.5))
	require.NoError(t, store.Set("sync.workers", 4))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[server]")
	assert.Contains(t, string(raw), "[sync]")
	assert.False(t, strings.Contains(string(raw), `"server.url"`), "keys are nested, not quoted")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	url, ok := reloaded.Get("server.url")
	require.True(t, ok)
	assert.Equal(t, "https://bi.example.com", url)
	workers, _ := reloaded.Get("sync.workers")
	assert.EqualValues(t, 4, workers)
	assert.Equal(t, []string{"server.requests_per_second", "server.url", "sync.workers"}, reloaded.Keys())
}

func TestConfigStore_HandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
url = "https://bi.example.com"
requests_per_second = 3

[paths]
data_dir = "/srv/bisync"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	rate, ok := store.Get("server.requests_per_second")
	require.True(t, ok)
	assert.Equal(t, int64(3), rate)
	dataDir, _ := store.Get("paths.data_dir")
	assert.Equal(t, "/srv/bisync", dataDir)
}

func TestConfigStore_Unset(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("sync.workers", 4))
	require.NoError(t, store.Set("sync.default_project", "Finance"))

	require.NoError(t, store.Unset("sync.workers"))
	require.NoError(t, store.Unset("never.set"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"sync.default_project"}, reloaded.Keys())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("server.token_secret", "s3cret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigStore_FailedWriteIsUndone(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("server", "flat"))

	assert.Error(t, store.Set("server.url", "https://bi.example.com"))

	_, ok := store.Get("server.url")
	assert.False(t, ok)
	assert.Equal(t, []string{"server"}, store.Keys())
}

func TestConfigStore_WriteFailsWhenPathIsDirectory(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(store.Path(), 0o700))

	assert.Error(t, store.Set("sync.workers", 2))
	assert.Empty(t, store.Keys())
}

func TestNestFlatten(t *testing.T) {
	tree, err := nest(map[string]any{"a.b": 1, "a.c": "x", "d": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 1, "c": "x"}, "d": true}, tree)

	flat := make(map[string]any)
	flatten(tree, "", flat)
	assert.Equal(t, map[string]any{"a.b": 1, "a.c": "x", "d": true}, flat)

	_, err = nest(map[string]any{"a": 1, "a.b": 2})
	assert.Error(t, err)
}
