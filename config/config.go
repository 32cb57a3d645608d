package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// EVMChain configures one EVM chain: connection, signing key and the
// contract addresses the providers drive on it.
type EVMChain struct {
	RPCURL         string `mapstructure:"rpc_url"`
	ChainID        int64  `mapstructure:"chain_id"`
	PrivateKey     string `mapstructure:"private_key"`
	BridgeContract string `mapstructure:"bridge_contract"`
	AMMRouter      string `mapstructure:"amm_router"`
	SubgraphURL    string `mapstructure:"subgraph_url"`
}

// SolanaChain configures the Solana connection.
type SolanaChain struct {
	RPCURL     string `mapstructure:"rpc_url"`
	PrivateKey string `mapstructure:"private_key"`
	Commitment string `mapstructure:"commitment"`
}

// Pair seeds the AMM provider's rate table.
type Pair struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Rate string `mapstructure:"rate"`
}

// Config holds the application configuration.
type Config struct {
	Network     string `mapstructure:"network"`
	WalletID    string `mapstructure:"wallet_id"`
	StoragePath string `mapstructure:"storage_path"`

	OneClickJWT string `mapstructure:"oneclick_jwt"`

	BridgeFeeBps int64 `mapstructure:"bridge_fee_bps"`
	AMMFeeBps    int64 `mapstructure:"amm_fee_bps"`

	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	PollTimeoutSeconds  int `mapstructure:"poll_timeout_seconds"`
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`

	EVM    map[string]EVMChain `mapstructure:"evm"`
	Solana SolanaChain         `mapstructure:"solana"`
	Pairs  []Pair              `mapstructure:"pairs"`
}

var globalConfig *Config

// Load reads configuration from the config file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName(".crosswap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetDefault("network", "mainnet")
	viper.SetDefault("wallet_id", "default")
	viper.SetDefault("bridge_fee_bps", 30)
	viper.SetDefault("amm_fee_bps", 30)
	viper.SetDefault("poll_interval_seconds", 5)
	viper.SetDefault("poll_timeout_seconds", 30)
	viper.SetDefault("tick_interval_seconds", 15)

	viper.SetEnvPrefix("CROSSWAP")
	viper.AutomaticEnv()

	// Config file is optional; env vars can carry everything.
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Env-only deployments don't unmarshal into nested keys; pick the
	// common secrets up explicitly.
	if cfg.OneClickJWT == "" {
		cfg.OneClickJWT = viper.GetString("oneclick_jwt")
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return nil, fmt.Errorf("invalid network %q: must be mainnet or testnet", cfg.Network)
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it on first use.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}
