package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("PACKWRIGHT_GITHUB_TOKEN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "dist", cfg.Build.DistDir)
	assert.Equal(t, 4, cfg.Build.Workers)
	assert.Equal(t, ".packwright/artifacts", cfg.Artifacts.Root)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBase)
	assert.Equal(t, "https://uploads.github.com", cfg.GitHub.UploadBase)
	assert.Equal(t, 5*time.Minute, cfg.GitHub.Timeout)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: error
build:
  dist_dir: out
github:
  owner: acme
  repo: sjtumat
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Build.DistDir)
	assert.Equal(t, "acme", cfg.GitHub.Owner)
	assert.Equal(t, "sjtumat", cfg.GitHub.Repo)
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("PACKWRIGHT_BUILD_DIST_DIR", "from-env")
	t.Setenv("PACKWRIGHT_GITHUB_OWNER", "env-owner")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\nbuild:\n  dist_dir: from-file\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Build.DistDir)
	assert.Equal(t, "env-owner", cfg.GitHub.Owner)
}

func TestTokenFallsBackToEnvironment(t *testing.T) {
	t.Setenv("PACKWRIGHT_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "from-env")

	cfg := DefaultConfig()
	assert.Equal(t, "from-env", cfg.GitHub.Token)

	t.Setenv("PACKWRIGHT_GITHUB_TOKEN", "specific")
	cfg = DefaultConfig()
	assert.Equal(t, "specific", cfg.GitHub.Token)
}

func TestLoadConfigRejectsInvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
