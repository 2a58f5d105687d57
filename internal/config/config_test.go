package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "trailstop.yaml", "Env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsTestEnv())
	assert.Equal(t, 15*time.Second, cfg.Keeper.ScanInterval(), "scan interval defaults to 15s")
	assert.Equal(t, ":9102", cfg.Keeper.MetricsListenOn)
	assert.Equal(t, 10, cfg.Postgres.MaxOpen)
	assert.Nil(t, cfg.Engine.Value, "engine section is optional")
	assert.Equal(t, dir, cfg.BaseDir())
}

func TestLoad_HydratesEngineSection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "engine.yaml", `
gov: "0x000000000000000000000000000000000000901f"
executor: "0x000000000000000000000000000000000000e9e9"
engine_address: "0x00000000000000000000000000000000000000e1"
wrapped_native: "0x0000000000000000000000000000000000001ef1"
vault: "0x000000000000000000000000000000000000f0f0"
min_execution_fee: "5000000000000000"
`)
	path := writeConfig(t, dir, "trailstop.yaml", `
Env: dev
Keeper:
  ScanIntervalRaw: 5s
  JournalDir: /tmp/trailstop-journal
Engine:
  File: engine.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Keeper.ScanInterval())
	require.NotNil(t, cfg.Engine.Value, "engine section should hydrate from its file")
	assert.Equal(t, "5000000000000000", cfg.Engine.Value.MinExecutionFee().String())
	assert.Equal(t, filepath.Join(dir, "engine.yaml"), cfg.Engine.File, "section file is rewritten to its resolved path")
}

func TestLoad_BadEngineSection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "engine.yaml", "gov: nope\n")
	path := writeConfig(t, dir, "trailstop.yaml", "Engine:\n  File: engine.yaml\n")

	_, err := Load(path)
	assert.Error(t, err, "invalid engine config must fail the whole load")
}

func TestKeeperConf_ScanIntervalFallback(t *testing.T) {
	k := KeeperConf{ScanIntervalRaw: "garbage"}
	assert.Equal(t, 15*time.Second, k.ScanInterval())
	k = KeeperConf{ScanIntervalRaw: "-3s"}
	assert.Equal(t, 15*time.Second, k.ScanInterval())
}
