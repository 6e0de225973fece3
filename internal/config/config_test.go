package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/timevault/internal/config"
)

func TestNetworkParams(t *testing.T) {
	t.Run("development carries concrete test principals", func(t *testing.T) {
		p := config.NetworkParams("development")
		assert.NotEmpty(t, p.Owner)
		assert.NotEmpty(t, p.EscapeDestination)
		assert.NotZero(t, p.TimeLock)
		assert.GreaterOrEqual(t, p.TimeLock, p.AbsoluteMinTimeLock)
	})

	t.Run("other networks are empty placeholders", func(t *testing.T) {
		p := config.NetworkParams("mainnet")
		assert.Empty(t, p.Owner)
		assert.Empty(t, p.EscapeDestination)
		assert.Zero(t, p.TimeLock)
	})
}

func TestLoad(t *testing.T) {
	t.Run("defaults to the development network", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "development", cfg.Network)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "dev-owner", cfg.Params.Owner)
	})

	t.Run("environment overrides preset fields", func(t *testing.T) {
		t.Setenv("NETWORK", "testnet")
		t.Setenv("VAULT_OWNER", "real-owner")
		t.Setenv("VAULT_TIMELOCK", "86400")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "testnet", cfg.Network)
		assert.Equal(t, "real-owner", cfg.Params.Owner)
		assert.Equal(t, uint64(86400), cfg.Params.TimeLock)
		assert.Empty(t, cfg.Params.EscapeDestination)
	})
}

func TestDeploymentStore(t *testing.T) {
	t.Run("records and preserves per-network addresses", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "environments.json")
		store := config.NewDeploymentStore(path)

		require.NoError(t, store.Record("development", "http://localhost:8080"))
		require.NoError(t, store.Record("testnet", "http://10.0.0.5:8080"))
		require.NoError(t, store.Record("development", "http://localhost:9090"))

		addr, ok, err := store.Lookup("development")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "http://localhost:9090", addr)

		addr, ok, err = store.Lookup("testnet")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "http://10.0.0.5:8080", addr)

		_, ok, err = store.Lookup("mainnet")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing file reads as empty", func(t *testing.T) {
		store := config.NewDeploymentStore(filepath.Join(t.TempDir(), "absent.json"))
		_, ok, err := store.Lookup("development")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "environments.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

		store := config.NewDeploymentStore(path)
		err := store.Record("development", "http://localhost:8080")
		assert.Error(t, err)
	})
}
