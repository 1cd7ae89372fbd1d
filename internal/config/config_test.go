package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.DirPermits)
	assert.Nil(t, cfg.Defaults.Cache)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dupehound"), 0o755))
	content := `
[defaults]
dir_permits = 64
file_permits = 128
max_symlinks = 32
hash_timeout = "90s"
cache = true
bwlimit = "50M"
`
	require.NoError(
		t,
		os.WriteFile(filepath.Join(dir, "dupehound", "config.toml"), []byte(content), 0o644),
	)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.DirPermits)
	assert.Equal(t, 64, *cfg.Defaults.DirPermits)
	require.NotNil(t, cfg.Defaults.FilePermits)
	assert.Equal(t, 128, *cfg.Defaults.FilePermits)
	require.NotNil(t, cfg.Defaults.MaxSymlinks)
	assert.Equal(t, 32, *cfg.Defaults.MaxSymlinks)
	require.NotNil(t, cfg.Defaults.HashTimeout)
	assert.Equal(t, "90s", *cfg.Defaults.HashTimeout)
	require.NotNil(t, cfg.Defaults.Cache)
	assert.True(t, *cfg.Defaults.Cache)
	require.NotNil(t, cfg.Defaults.BWLimit)
	assert.Equal(t, "50M", *cfg.Defaults.BWLimit)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dupehound"), 0o755))
	require.NoError(
		t,
		os.WriteFile(filepath.Join(dir, "dupehound", "config.toml"), []byte("not [valid"), 0o644),
	)

	_, err := Load()
	assert.Error(t, err)
}
