package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "openai", cfg.Providers.DefaultProvider)
	assert.Equal(t, 2, cfg.Engine.MaxConcurrentTasksPerUser)
	assert.Equal(t, 5, cfg.Matcher.BatchSize)
}

func TestLoadFromFilesMergesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000
host = "0.0.0.0"

[storage]
backend = "sqlite"
`), 0o644))

	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0o644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "later file's port should win")
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "host from the earlier file should survive since override didn't set it")
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestLoadFromFilesMissingFileErrors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestLoadFromFilesAppliesEnvOverrides(t *testing.T) {
	t.Setenv("AGENT_SERVER_PORT", "9999")
	t.Setenv("OPENAI_API_KEY", "sk-test-value")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "sk-test-value", cfg.Providers.OpenAI.APIKey)
}

func TestEngineConfigDeadlineForKnownAndUnknownTypes(t *testing.T) {
	e := EngineConfig{ScraperDeadline: "10m", MatcherDeadline: "invalid", JobAgentDeadline: ""}
	assert.Equal(t, 10*time.Minute, e.DeadlineFor("seek_scraper"))
	assert.Equal(t, 30*time.Minute, e.DeadlineFor("resume_job_matching"), "invalid duration string falls back to default")
	assert.Equal(t, 30*time.Minute, e.DeadlineFor("job_agent"), "empty duration string falls back to default")
	assert.Equal(t, 30*time.Minute, e.DeadlineFor("unknown_type"))
}
