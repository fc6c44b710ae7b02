package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateConfigWritesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("JXL_RELEASE_GITHUB_TOKEN", "")

	cfg, err := LoadOrCreateConfig(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.GitHubToken)
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestLoadOrCreateConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("JXL_RELEASE_GITHUB_TOKEN", "")
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.json"),
		[]byte(`{"github_token": "abc", "container_image": "rust:slim"}`),
		0o600,
	))

	cfg, err := LoadOrCreateConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.GitHubToken)
	assert.Equal(t, "rust:slim", cfg.ContainerImage)
}

func TestLoadOrCreateConfigFallsBackToGitHubToken(t *testing.T) {
	t.Setenv("JXL_RELEASE_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "from-ci")

	cfg, err := LoadOrCreateConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-ci", cfg.GitHubToken)
}

func TestRedacted(t *testing.T) {
	c := Config{GitHubToken: "secret"}
	assert.Equal(t, "<redacted>", c.Redacted().GitHubToken)
	assert.Equal(t, "secret", c.GitHubToken)
}

func TestParseBuildEnv(t *testing.T) {
	t.Setenv("JXL_RELEASE_CARGO_FLAGS", "--locked --features=avif")
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")

	e, err := ParseBuildEnv()
	require.NoError(t, err)
	assert.Equal(t, "cross", e.Cross)
	assert.Equal(t, []string{"--locked", "--features=avif"}, e.CargoFlags)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), e.ArchiveTime())
}

func TestArchiveTimeDefault(t *testing.T) {
	assert.Equal(t, 1980, BuildEnv{}.ArchiveTime().Year())
}
