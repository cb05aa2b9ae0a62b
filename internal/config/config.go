package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/lendlens/lendlens/internal/chains"
)

// Config represents the application configuration
type Config struct {
	Wallets           []string          `mapstructure:"wallets" validate:"omitempty,min=1,dive,eth_addr"`
	Chains            []string          `mapstructure:"chains" validate:"omitempty,min=1,dive,chain"`
	Interval          string            `mapstructure:"interval" validate:"omitempty,duration"`
	CacheTTL          string            `mapstructure:"cache_ttl" validate:"omitempty,duration"`
	RequestTimeout    string            `mapstructure:"request_timeout" validate:"omitempty,duration"`
	LogLevel          string            `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort          int               `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	PriceIndexURL     string            `mapstructure:"price_index_url" validate:"omitempty,url"`
	SubgraphOverrides map[string]string `mapstructure:"subgraph_overrides" validate:"omitempty,dive,url"`
}

// Normalize fills defaults and checks cross-field consistency.
// An empty chain list means every supported deployment.
func (c *Config) Normalize() error {
	if len(c.Chains) == 0 {
		for _, p := range chains.All() {
			c.Chains = append(c.Chains, string(p.ID))
		}
	}
	for key := range c.SubgraphOverrides {
		if !chains.IsSupported(chains.ID(key)) {
			return fmt.Errorf("subgraph_overrides: unknown chain %q", key)
		}
	}
	return nil
}

// ChainIDs returns the configured chains as typed identifiers.
func (c *Config) ChainIDs() []chains.ID {
	ids := make([]chains.ID, 0, len(c.Chains))
	for _, name := range c.Chains {
		ids = append(ids, chains.ID(name))
	}
	return ids
}

// Overrides returns per-chain subgraph endpoint replacements.
func (c *Config) Overrides() map[chains.ID]string {
	if len(c.SubgraphOverrides) == 0 {
		return nil
	}
	overrides := make(map[chains.ID]string, len(c.SubgraphOverrides))
	for key, url := range c.SubgraphOverrides {
		overrides[chains.ID(key)] = url
	}
	return overrides
}

// CacheTTLDuration parses cache_ttl, defaulting to 6h.
func (c *Config) CacheTTLDuration() time.Duration {
	return parseDurationOr(c.CacheTTL, 6*time.Hour)
}

// RequestTimeoutDuration parses request_timeout, defaulting to 30s.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDurationOr(c.RequestTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// chainValidator validates chain identifiers against the registry
func chainValidator(fl validator.FieldLevel) bool {
	return chains.IsSupported(chains.ID(fl.Field().String()))
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("chain", chainValidator)
	return validate
}
