// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8002", cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "assistant", cfg.Chat.DefaultPersonality)
	assert.Equal(t, "dark", cfg.UI.Theme)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestLoadFromPath_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
url = "http://10.0.0.5:9000"

[ui]
theme = "light"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.Backend.URL)
	assert.Equal(t, "light", cfg.UI.Theme)
	// Unspecified fields keep defaults.
	assert.Equal(t, 30, cfg.Backend.RequestTimeoutSecs)
	assert.Equal(t, "assistant", cfg.Chat.DefaultPersonality)
}

func TestLoadFromPath_InvalidTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0o600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestLoadFromPath_InvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[backend]\nurl = \"not a url\"\n"), 0o600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.URL = "http://backend.internal:8002"
	cfg.UI.CompactMode = true
	require.NoError(t, SaveToPath(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal:8002", loaded.Backend.URL)
	assert.True(t, loaded.UI.CompactMode)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CORTEX_BACKEND_URL", "http://override:1234")
	t.Setenv("CORTEX_PERSONALITY", "mentor")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://override:1234", cfg.Backend.URL)
	assert.Equal(t, "mentor", cfg.Chat.DefaultPersonality)
}

func TestState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")

	require.NoError(t, SaveStateToPath(&State{LastRootDir: "/tmp/notes"}, path))

	st, err := LoadStateFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/notes", st.LastRootDir)
}

func TestState_MissingFileIsEmpty(t *testing.T) {
	st, err := LoadStateFromPath(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)
	assert.Empty(t, st.LastRootDir)
}

func TestResolveRoot(t *testing.T) {
	existing := t.TempDir()
	fallback := t.TempDir()

	cfg := Default()
	cfg.UI.DefaultRoot = fallback

	// Remembered root wins while it exists.
	root := ResolveRoot(cfg, &State{LastRootDir: existing})
	assert.Equal(t, existing, root)

	// A vanished remembered root falls back to the configured default.
	root = ResolveRoot(cfg, &State{LastRootDir: filepath.Join(existing, "gone")})
	assert.Equal(t, fallback, root)

	// With neither set, the home directory is used.
	cfg.UI.DefaultRoot = ""
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, ResolveRoot(cfg, &State{}))
}
