package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerr "github.com/crosseverything/crosseverything/internal/errors"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	// When: loading a path that does not exist
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	// Then: defaults are returned without error
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit)
	assert.Equal(t, 200*time.Millisecond, cfg.Watcher.DebounceWindow)
}

func TestLoad_ParsesFile(t *testing.T) {
	// Given: a config file
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data_dir: /tmp/ce-test
roots:
  - /home/user/documents
  - /home/user/downloads
log_level: debug
search_limit: 100
watcher:
  enabled: true
  debounce_window: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When: loading it
	cfg, err := Load(path)
	require.NoError(t, err)

	// Then: every field is populated
	assert.Equal(t, "/tmp/ce-test", cfg.DataDir)
	assert.Equal(t, []string{"/home/user/documents", "/home/user/downloads"}, cfg.Roots)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 100, cfg.SearchLimit)
	assert.True(t, cfg.Watcher.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Watcher.DebounceWindow)
}

func TestLoad_ResolvesRelativeRoots(t *testing.T) {
	// Given: a config file with a relative root
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots:\n  - docs\n"), 0o644))
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	// When: loading it
	cfg, err := Load(path)
	require.NoError(t, err)

	// Then: the root is resolved against the working directory
	require.Len(t, cfg.Roots, 1)
	assert.True(t, filepath.IsAbs(cfg.Roots[0]))
	assert.Equal(t, "docs", filepath.Base(cfg.Roots[0]))
}

func TestLoad_MalformedFileIsConfigError(t *testing.T) {
	// Given: a file that is not valid YAML
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [unclosed"), 0o644))

	// When: loading it
	_, err := Load(path)

	// Then: a typed config error is returned
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, cerr.New(cerr.ErrCodeConfigInvalid, "", nil)))
}

func TestLoad_ClampsSearchLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_limit: 5000"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit)
}

func TestPaths_DerivedFromDataDir(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	assert.Equal(t, filepath.Join("/data", "metadata.db"), cfg.MetadataPath())
	assert.Equal(t, filepath.Join("/data", "search_index"), cfg.SearchIndexPath())
}
