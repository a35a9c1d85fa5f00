package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBridgeAddr, cfg.BridgeAddr)
	assert.True(t, cfg.Headless)
	assert.Equal(t, DefaultBridgeCallTimeout, cfg.BridgeCallTimeout())
	assert.Equal(t, DefaultSnapshotMaxNodes, cfg.SnapshotMaxNodes)
}

func TestLoadPartialFileBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "bridge_addr: \"127.0.0.1:9999\"\nheadless: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.BridgeAddr)
	assert.False(t, cfg.Headless)
	assert.NotEmpty(t, cfg.SocketPath, "unset fields take defaults")
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.BridgeAddr = "127.0.0.1:9224"
	cfg.BridgeCallTimeoutSeconds = 5
	require.NoError(t, cfg.Save(path))

	// No temp file left behind
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9224", loaded.BridgeAddr)
	assert.Equal(t, 5*time.Second, loaded.BridgeCallTimeout())
}

func TestSnapshotMaxNodesBackfill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("headless: false\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSnapshotMaxNodes, cfg.SnapshotMaxNodes)

	// Negative disables the bound and survives loading untouched
	require.NoError(t, os.WriteFile(path, []byte("snapshot_max_nodes: -1\n"), 0600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.SnapshotMaxNodes)
}

func TestBridgeCallTimeoutDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, DefaultBridgeCallTimeout, cfg.BridgeCallTimeout())

	cfg.BridgeCallTimeoutSeconds = -1
	assert.Equal(t, DefaultBridgeCallTimeout, cfg.BridgeCallTimeout())

	cfg.BridgeCallTimeoutSeconds = 2
	assert.Equal(t, 2*time.Second, cfg.BridgeCallTimeout())
}
