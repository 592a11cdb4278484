package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	yaml := `
world:
  outline_length: 2048
  atomic_length: 64
  seed: 12345
  tick_rate: 30
storage:
  data_path: /tmp/game-data
  snapshot_every_seconds: 60
server:
  rest_port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, uint32(2048), cfg.World.GetOutlineLength())
	assert.Equal(t, uint32(64), cfg.World.GetAtomicLength())
	assert.Equal(t, int64(12345), cfg.World.Seed)
	assert.Equal(t, 30, cfg.World.GetTickRate())
	assert.Equal(t, "/tmp/game-data", cfg.Storage.GetDataPath())
	assert.Equal(t, 60, cfg.Storage.GetSnapshotInterval())
	assert.Equal(t, 9090, cfg.Server.GetRESTPort())
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	assert.Equal(t, uint32(1024), cfg.World.GetOutlineLength())
	assert.Equal(t, uint32(32), cfg.World.GetAtomicLength())
	assert.Equal(t, 20, cfg.World.GetTickRate())
	assert.Equal(t, 300, cfg.Storage.GetSnapshotInterval())
	assert.Equal(t, 8088, cfg.Server.GetRESTPort())
	assert.Equal(t, 2112, cfg.Server.GetMetricsPort())
}

func TestLoadMissingConfigIsNotError(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Nil(t, cfg, "Отсутствие конфига означает использование дефолтов")
}
