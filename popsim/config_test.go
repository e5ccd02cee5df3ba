package popsim

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "DEBUG"

[chain]
confirm_timeout = "45s"

[population]
batch_size = 10

[pool]
initial_reserve_a = "500"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 45*time.Second, cfg.Chain.ConfirmTimeout.Duration)
	assert.Equal(t, 2*time.Second, cfg.Chain.PollInterval.Duration)
	assert.Equal(t, 10, cfg.Population.BatchSize)
	assert.Equal(t, 10, cfg.Population.MaxConcurrent)
	assert.Equal(t, "500", cfg.Pool.InitialReserveA.String())
	assert.Equal(t, "1000000", cfg.Pool.InitialReserveB.String())
	assert.Equal(t, archetypes.DefaultTable(), cfg.Table())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("FUNDER_PRIVATE_KEY", "0xabc")
	t.Setenv("RPC_URL", "http://chain:8545")
	t.Setenv("DB_PORT", "6543")

	cfg, err := LoadConfig(writeConfig(t, `[chain]
funder_key = "from-file"
`))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", cfg.Chain.FunderKey)
	assert.Equal(t, "http://chain:8545", cfg.Chain.RPCURL)
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to open config")

	_, err = LoadConfig(writeConfig(t, `[chain]
confirm_timeout = "soon"
`))
	assert.ErrorContains(t, err, "failed to decode config")
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig("../config.example.toml")
	require.NoError(t, err)

	table := cfg.Table()
	require.NoError(t, table.Validate())
	assert.Len(t, table.Archetypes, 2)
	assert.Equal(t, "degen", table.Archetypes[1].ID)
	assert.Equal(t, 0.95, table.Archetypes[1].Behavior.RiskTolerance)
	assert.Equal(t, 30, cfg.Pool.FeeBps)
}
