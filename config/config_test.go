package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func lookupFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestLoad_RequiresOwnerPrivateKey(t *testing.T) {
	_, err := load(lookupFrom(map[string]string{}))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "OwnerPrivateKey"))
}

func TestLoad_DefaultsApplyWhenUnset(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"OWNER_PRIVATE_KEY": testKey,
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://ethereum-rpc.publicnode.com", cfg.L1RpcURL)
	assert.Equal(t, uint64(1000), cfg.BackfillBlocks)
	assert.Equal(t, int64(300), cfg.BackfillIntervalSeconds)
	assert.Equal(t, int64(30), cfg.HealthTickSeconds)
	assert.False(t, cfg.ReplaceStuckTx)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"OWNER_PRIVATE_KEY": testKey,
		"L1_RPC_URL":        "https://mainnet.infura.io/v3/abc",
		"BACKFILL_BLOCKS":   "500",
		"REPLACE_STUCK_TX":  "true",
		"LOG_LEVEL":         "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://mainnet.infura.io/v3/abc", cfg.L1RpcURL)
	assert.Equal(t, uint64(500), cfg.BackfillBlocks)
	assert.True(t, cfg.ReplaceStuckTx)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	_, err := load(lookupFrom(map[string]string{
		"OWNER_PRIVATE_KEY": "not-a-key",
	}))
	assert.Error(t, err, "a non-hex private key must fail validation")

	_, err = load(lookupFrom(map[string]string{
		"OWNER_PRIVATE_KEY": testKey,
		"BACKFILL_BLOCKS":   "many",
	}))
	assert.Error(t, err, "a non-numeric block count must fail parsing")

	_, err = load(lookupFrom(map[string]string{
		"OWNER_PRIVATE_KEY": testKey,
		"LOG_LEVEL":         "loud",
	}))
	assert.Error(t, err, "an unknown log level must fail validation")
}
