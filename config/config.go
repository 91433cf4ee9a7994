// Package config loads the relayer's configuration from the environment.
// Defaults come from struct tags applied by creasty/defaults;
// constraints are declared as validator tags and checked in one pass, so
// a misconfigured daemon fails at startup with every violation listed
// rather than at the first relay.
package config

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config is the full daemon configuration. Every field maps to one
// environment variable; only OWNER_PRIVATE_KEY has no usable default.
type Config struct {
	L1RpcURL string `env:"L1_RPC_URL" default:"https://ethereum-rpc.publicnode.com" validate:"required,url"`
	L2RpcURL string `env:"L2_RPC_URL" default:"https://arbitrum-one-rpc.publicnode.com" validate:"required,url"`

	// OwnerPrivateKey signs every EIP-712 payload and every outbound
	// transaction. Hex, no 0x prefix.
	OwnerPrivateKey string `env:"OWNER_PRIVATE_KEY" validate:"required,hexadecimal,len=64"`

	L1BridgeContract string `env:"L1_BRIDGE_CONTRACT" default:"0x1111111111111111111111111111111111111111" validate:"required,eth_addr"`
	L2BridgeContract string `env:"L2_BRIDGE_CONTRACT" default:"0x2222222222222222222222222222222222222222" validate:"required,eth_addr"`

	L1ChainID uint64 `env:"L1_CHAIN_ID" default:"1" validate:"required"`
	L2ChainID uint64 `env:"L2_CHAIN_ID" default:"42161" validate:"required"`

	// TxType selects the gas pricing strategy for outbound transactions:
	// 0 legacy, 2 EIP-1559.
	L1TxType uint64 `env:"L1_TX_TYPE" default:"2" validate:"oneof=0 2"`
	L2TxType uint64 `env:"L2_TX_TYPE" default:"2" validate:"oneof=0 2"`

	MongoURI      string `env:"MONGO_URI" default:"mongodb://localhost:27017" validate:"required"`
	MongoDatabase string `env:"MONGO_DATABASE" default:"relayer" validate:"required"`

	HTTPListenAddr string `env:"HTTP_LISTEN_ADDR" default:":8080" validate:"required"`

	BackfillBlocks          uint64 `env:"BACKFILL_BLOCKS" default:"1000" validate:"gt=0"`
	BackfillIntervalSeconds int64  `env:"BACKFILL_INTERVAL_SECONDS" default:"300" validate:"gt=0"`
	HealthTickSeconds       int64  `env:"HEALTH_TICK_SECONDS" default:"30" validate:"gt=0"`

	// ReplaceStuckTx opts into gas-bumped replacement of transactions
	// that sit unconfirmed past StuckTxTimeoutSeconds. Off by default:
	// a submitted transaction that never confirms stays PENDING.
	ReplaceStuckTx        bool  `env:"REPLACE_STUCK_TX" default:"false"`
	StuckTxTimeoutSeconds int64 `env:"STUCK_TX_TIMEOUT_SECONDS" default:"60" validate:"gt=0"`

	LogLevel string `env:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
}

// Load reads the environment, applies defaults to unset fields, and
// validates the result.
func Load() (*Config, error) {
	return load(os.Getenv)
}

// load is the testable core of Load: lookup provides env values, empty
// string meaning unset.
func load(lookup func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := fromEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply config defaults")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}
