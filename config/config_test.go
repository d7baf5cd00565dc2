package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devadigapratham/filavault/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filavault.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Normalize())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "raft", cfg.Node.ID)
	assert.True(t, cfg.Node.Bootstrap)
	assert.Equal(t, int64(16<<20), cfg.MaxUploadBytes())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[node]
id = "node1"
raft_addr = "10.0.0.1:7000"
http_addr = "10.0.0.1:8080"
peers = ["10.0.0.2:7000, 10.0.0.3:7000", " "]

[import]
per_minute = 0

[logging]
level = " DEBUG "
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Normalize())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "node1", cfg.Node.ID)
	assert.Equal(t, "10.0.0.1:7000", cfg.Node.RaftAddr)
	assert.Equal(t, []string{"10.0.0.2:7000", "10.0.0.3:7000"}, cfg.Node.Peers)
	assert.Equal(t, 0, cfg.Import.PerMinute)
	assert.Equal(t, 16, cfg.Import.MaxUploadMB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Clean("data/store"), cfg.Storage.DataDir)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "open config")

	_, err = config.Load(writeConfig(t, "[node\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = config.Load(writeConfig(t, "[node]\nunknown_key = 1\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestNormalizeExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.Default()
	cfg.Node.RaftDir = "~/filavault/node7"
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, filepath.Join(home, "filavault", "node7"), cfg.Node.RaftDir)
	assert.Equal(t, "node7", cfg.Node.ID)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Node.ID = "n1"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing id", func(c *config.Config) { c.Node.ID = "" }, "node.id"},
		{"bad raft addr", func(c *config.Config) { c.Node.RaftAddr = "localhost" }, "node.raft_addr"},
		{"bad peer", func(c *config.Config) { c.Node.Peers = []string{"nope"} }, "node.peers"},
		{"join and bootstrap", func(c *config.Config) { c.Node.JoinAddr = "10.0.0.1:8080" }, "mutually exclusive"},
		{"negative rate", func(c *config.Config) { c.Import.PerMinute = -1 }, "import.per_minute"},
		{"zero upload", func(c *config.Config) { c.Import.MaxUploadMB = 0 }, "import.max_upload_mb"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			before := cfg
			assert.ErrorContains(t, cfg.Validate(), tt.want)
			assert.Equal(t, before, cfg)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}
