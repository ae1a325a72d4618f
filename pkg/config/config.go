// Package config loads the process configuration from flags, an optional
// TOML file, and environment variables. Precedence, lowest to highest:
// built-in defaults, config file, environment, explicit flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// Ledger
	RPCURL          string `toml:"rpc_url"`
	PackageID       string `toml:"package_id"`
	AdminCapID      string `toml:"admin_cap_id"`
	DeployerAddress string `toml:"deployer_address"`
	AdminPrivateKey string `toml:"admin_private_key"` // empty means read-only mode
	CoinType        string `toml:"coin_type"`
	GasBudget       uint64 `toml:"gas_budget"`
	RPCTimeoutSecs  int    `toml:"rpc_timeout_secs"`

	// API server
	APIHost string `toml:"api_host"`
	APIPort int    `toml:"api_port"`

	// Market data
	CoinGeckoURL  string `toml:"coingecko_url"`
	BinanceURL    string `toml:"binance_url"`
	RedisAddr     string `toml:"redis_addr"` // empty disables the market cache
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// Process
	Environment string `toml:"environment"` // development or production
	LogLevel    string `toml:"log_level"`   // debug, info, warn, error
}

// envVars maps environment variable names onto string fields.
func (c *Config) envVars() map[string]*string {
	return map[string]*string{
		"ONECHAIN_RPC_URL":  &c.RPCURL,
		"PACKAGE_ID":        &c.PackageID,
		"ADMIN_CAP_ID":      &c.AdminCapID,
		"DEPLOYER_ADDRESS":  &c.DeployerAddress,
		"ADMIN_PRIVATE_KEY": &c.AdminPrivateKey,
		"COIN_TYPE":         &c.CoinType,
		"API_HOST":          &c.APIHost,
		"COINGECKO_URL":     &c.CoinGeckoURL,
		"BINANCE_URL":       &c.BinanceURL,
		"REDIS_ADDR":        &c.RedisAddr,
		"REDIS_PASSWORD":    &c.RedisPassword,
		"ENVIRONMENT":       &c.Environment,
		"LOG_LEVEL":         &c.LogLevel,
	}
}

func defaults() Config {
	return Config{
		RPCURL:         "https://rpc-testnet.onelabs.cc:443",
		CoinType:       "0x2::oct::OCT",
		GasBudget:      10_000_000,
		RPCTimeoutSecs: 30,
		APIHost:        "0.0.0.0",
		APIPort:        8000,
		Environment:    "development",
		LogLevel:       "info",
	}
}

// Load parses configuration from args (e.g. os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("battled", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to a TOML config file")
	fs.String("rpc-url", cfg.RPCURL, "Ledger JSON-RPC endpoint URL")
	fs.String("package-id", "", "On-chain package id")
	fs.String("admin-cap-id", "", "Admin capability object id")
	fs.String("deployer-address", "", "Deployer/admin address")
	fs.String("coin-type", cfg.CoinType, "Staking coin type tag")
	fs.String("api-host", cfg.APIHost, "API server host")
	fs.Int("api-port", cfg.APIPort, "API server port")
	fs.String("redis-addr", "", "Redis address for the market data cache (empty disables)")
	fs.String("environment", cfg.Environment, "Runtime environment (development or production)")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		raw, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	for name, field := range cfg.envVars() {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("API_PORT: %w", err)
		}
		cfg.APIPort = port
	}
	if v := os.Getenv("GAS_BUDGET"); v != "" {
		budget, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GAS_BUDGET: %w", err)
		}
		cfg.GasBudget = budget
	}

	// Flags passed explicitly on the command line win over file and env.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rpc-url":
			cfg.RPCURL = f.Value.String()
		case "package-id":
			cfg.PackageID = f.Value.String()
		case "admin-cap-id":
			cfg.AdminCapID = f.Value.String()
		case "deployer-address":
			cfg.DeployerAddress = f.Value.String()
		case "coin-type":
			cfg.CoinType = f.Value.String()
		case "api-host":
			cfg.APIHost = f.Value.String()
		case "api-port":
			cfg.APIPort, _ = strconv.Atoi(f.Value.String())
		case "redis-addr":
			cfg.RedisAddr = f.Value.String()
		case "environment":
			cfg.Environment = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.PackageID == "" {
		missing = append(missing, "package-id")
	}
	if c.AdminCapID == "" {
		missing = append(missing, "admin-cap-id")
	}
	if c.DeployerAddress == "" {
		missing = append(missing, "deployer-address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", c.APIPort)
	}
	return nil
}

// RPCTimeout returns the RPC timeout as a duration.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutSecs) * time.Second
}
