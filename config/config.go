package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host             string `mapstructure:"host"`
		Port             int64  `mapstructure:"port"`
		Mode             string `mapstructure:"mode"` // "gateway" or "trusted"
		MetricsNamespace string `mapstructure:"metrics_namespace"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Datadog struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"datadog"`

	BlockStorage struct {
		Host      string `mapstructure:"host"`
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret"`
		Bucket    string `mapstructure:"bucket"`
	} `mapstructure:"block_storage"`

	// Baseline holds the platform-wide guard limits that apply to every
	// agent regardless of assigned policies.
	Baseline struct {
		MaxLamportsPerTx string `mapstructure:"max_lamports_per_tx"`
		DailyLamportsCap string `mapstructure:"daily_lamports_cap"`
	} `mapstructure:"baseline"`

	Solana struct {
		RPC     string `mapstructure:"rpc"`
		Cluster string `mapstructure:"cluster"`
	} `mapstructure:"solana"`

	Simulation struct {
		Require bool `mapstructure:"require"`
	} `mapstructure:"simulation"`

	Builder struct {
		AllowMock       bool   `mapstructure:"allow_mock"`
		JupiterQuoteURL string `mapstructure:"jupiter_quote_url"`
		JupiterSwapURL  string `mapstructure:"jupiter_swap_url"`
		RaydiumQuoteURL string `mapstructure:"raydium_quote_url"`
		RaydiumBuildURL string `mapstructure:"raydium_build_url"`
		OrcaSwapURL     string `mapstructure:"orca_swap_url"`
	} `mapstructure:"builder"`

	Custody struct {
		Provider  string `mapstructure:"provider"`
		BaseURL   string `mapstructure:"base_url"`
		AppID     string `mapstructure:"app_id"`
		AppSecret string `mapstructure:"app_secret"`
	} `mapstructure:"custody"`
}

func ReadConfig(configName string) (Config, error) {
	var cfg Config
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "gateway")
	viper.SetDefault("server.metrics_namespace", "aegis")
	viper.SetDefault("datadog.host", "127.0.0.1")
	viper.SetDefault("datadog.port", "8125")
	viper.SetDefault("baseline.max_lamports_per_tx", "1000000000")
	viper.SetDefault("baseline.daily_lamports_cap", "5000000000")
	viper.SetDefault("simulation.require", true)
	viper.SetDefault("solana.rpc", "https://api.devnet.solana.com")
	viper.SetDefault("builder.allow_mock", true)
	viper.SetDefault("builder.jupiter_quote_url", "https://lite-api.jup.ag/swap/v1/quote")
	viper.SetDefault("builder.jupiter_swap_url", "https://lite-api.jup.ag/swap/v1/swap")
	viper.SetDefault("builder.raydium_quote_url", "https://transaction-v1.raydium.io/compute/swap-base-in")
	viper.SetDefault("builder.raydium_build_url", "https://transaction-v1.raydium.io/transaction/swap-base-in")

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("fail to read config file, err: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("fail to unmarshal config, err: %w", err)
	}
	return cfg, nil
}
