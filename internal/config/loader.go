package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "") // Run once by default
	v.SetDefault("cache_ttl", "6h")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("http_port", 8080)

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("LENDLENS")
	v.AutomaticEnv()

	// Map environment variables to config keys
	// LENDLENS_WALLETS -> wallets
	v.BindEnv("wallets", "WALLETS")
	v.BindEnv("chains", "CHAINS")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("interval", "INTERVAL")
	v.BindEnv("cache_ttl", "CACHE_TTL")
	v.BindEnv("request_timeout", "REQUEST_TIMEOUT")
	v.BindEnv("http_port", "HTTP_PORT")
	v.BindEnv("price_index_url", "PRICE_INDEX_URL")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Special handling for comma-separated env vars
	if walletsEnv := v.GetString("wallets"); strings.Contains(walletsEnv, ",") {
		cfg.Wallets = splitAndTrim(walletsEnv)
	}
	if chainsEnv := v.GetString("chains"); strings.Contains(chainsEnv, ",") {
		cfg.Chains = splitAndTrim(chainsEnv)
	}

	// 6. Normalize: default chain list, check override keys
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDatabase loads config plus DATABASE_URL from the environment.
// DATABASE_URL is only required by commands that persist snapshots.
func LoadWithDatabase(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	v := viper.New()
	v.BindEnv("database_url", "DATABASE_URL")
	databaseURL := v.GetString("database_url")

	if databaseURL == "" {
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, databaseURL, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
