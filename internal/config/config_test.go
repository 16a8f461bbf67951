package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultBlobDir, cfg.BlobDir)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, DefaultPreviewRows, cfg.PreviewRows)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultKeepCount, cfg.KeepCount)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prepflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"state_path: /var/lib/prepflow/state.db\npreview_rows: 25\n"), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/prepflow/state.db", cfg.StatePath)
	assert.Equal(t, 25, cfg.PreviewRows)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultBlobDir, cfg.BlobDir)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_FileMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.ErrorContains(t, err, "config file not found")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prepflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	t.Setenv("PREPFLOW_ENVIRONMENT", "prod")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PREPFLOW_STATE_PATH", "/from/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("blob-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--state", "/from/flag.db", "--blob-dir", "/blobs"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	// The --state flag maps onto the state_path key.
	assert.Equal(t, "/from/flag.db", cfg.StatePath)
	assert.Equal(t, "/blobs", cfg.BlobDir)
}

func TestLoadConfig_UnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{StatePath: "s.db", BlobDir: "b", PreviewRows: 10}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing state path", Config{BlobDir: "b", PreviewRows: 10}},
		{"missing blob dir", Config{StatePath: "s.db", PreviewRows: 10}},
		{"non-positive preview rows", Config{StatePath: "s.db", BlobDir: "b"}},
		{"negative keep count", Config{StatePath: "s.db", BlobDir: "b", PreviewRows: 1, KeepCount: -1}},
		{"negative retention", Config{StatePath: "s.db", BlobDir: "b", PreviewRows: 1, RetentionDays: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		StatePath:   filepath.Join(dir, "store", "state.db"),
		BlobDir:     filepath.Join(dir, "blobs"),
		PreviewRows: 10,
	}
	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{filepath.Join(dir, "store"), cfg.BlobDir} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
