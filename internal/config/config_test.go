// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photostack-dev/photostack/internal/config"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.Server.Listen)
	assert.Equal(t, "photostack", cfg.Vector.Collection)
	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Watch.StabilizeTimeout)
	assert.Contains(t, cfg.Watch.Extensions, ".jpg")
	assert.Contains(t, cfg.Watch.Extensions, ".webp")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "photostack.yaml")

	content := `
server:
  listen: "0.0.0.0:9999"
vector:
  dimension: 512
watch:
  dirs:
    - /photos/inbox
provider:
  api_key: "test-key"
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
	assert.Equal(t, 512, cfg.Vector.Dimension)
	assert.Equal(t, []string{"/photos/inbox"}, cfg.Watch.Dirs)
	assert.Equal(t, "test-key", cfg.Provider.APIKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PHOTOSTACK_SERVER_LISTEN", "10.0.0.1:8080")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "photostack.yaml")

	content := `
server:
  listen: "not-an-address"
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.listen")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Listen: ""},
		Ingest: config.IngestConfig{Endpoint: "ftp://nope", DataDir: ""},
		Watch: config.WatchConfig{
			PollInterval:     0,
			StabilizeTimeout: 0,
			Extensions:       []string{"jpg"},
		},
		Scan:   config.ScanConfig{Interval: 0},
		Vector: config.VectorConfig{Path: "", Collection: "", Dimension: 0},
	}

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 9)
}

func TestValidate_PortRange(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Listen: "127.0.0.1:99999"},
		Ingest: config.IngestConfig{Endpoint: "http://127.0.0.1:8088", DataDir: "./data"},
		Watch: config.WatchConfig{
			PollInterval:     500 * time.Millisecond,
			StabilizeTimeout: 30 * time.Second,
		},
		Scan:   config.ScanConfig{Interval: 30 * time.Second},
		Vector: config.VectorConfig{Path: "v.db", Collection: "photostack", Dimension: 768},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "port must be between")
}
