package engine

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"trailstop/pkg/confkit"
)

// Config is the engine's deployment configuration. Amounts are decimal
// strings: the execution-fee floor is in native-currency base units and the
// reserved minimum-purchase parameter is 1e30 USD fixed point.
type Config struct {
	Gov           string `yaml:"gov"`
	Executor      string `yaml:"executor"`
	EngineAddress string `yaml:"engine_address"`
	WrappedNative string `yaml:"wrapped_native"`
	Vault         string `yaml:"vault"`

	MinExecutionFeeRaw           string `yaml:"min_execution_fee"`
	MinPurchaseTokenAmountUsdRaw string `yaml:"min_purchase_token_amount_usd"`

	// FeedURL switches the keeper from the sim oracle to the HTTP price feed.
	FeedURL string `yaml:"feed_url"`

	minExecutionFee           *big.Int
	minPurchaseTokenAmountUsd *big.Int
}

// LoadConfig reads engine configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open engine config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads engine configuration from the default project location and
// panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/engine.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader decodes and validates configuration from r.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read engine config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse engine config: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))
	if expanded != string(raw) {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse engine config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks addresses and parses the amount fields.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"gov":            c.Gov,
		"executor":       c.Executor,
		"engine_address": c.EngineAddress,
		"wrapped_native": c.WrappedNative,
		"vault":          c.Vault,
	} {
		if !common.IsHexAddress(strings.TrimSpace(v)) {
			return fmt.Errorf("engine config: %s must be a hex address, got %q", name, v)
		}
	}

	fee, ok := new(big.Int).SetString(strings.TrimSpace(c.MinExecutionFeeRaw), 10)
	if !ok || fee.Sign() <= 0 {
		return fmt.Errorf("engine config: min_execution_fee must be a positive integer, got %q", c.MinExecutionFeeRaw)
	}
	c.minExecutionFee = fee

	if strings.TrimSpace(c.MinPurchaseTokenAmountUsdRaw) == "" {
		c.minPurchaseTokenAmountUsd = new(big.Int)
	} else {
		v, ok := new(big.Int).SetString(strings.TrimSpace(c.MinPurchaseTokenAmountUsdRaw), 10)
		if !ok || v.Sign() < 0 {
			return fmt.Errorf("engine config: min_purchase_token_amount_usd must be a non-negative integer, got %q", c.MinPurchaseTokenAmountUsdRaw)
		}
		c.minPurchaseTokenAmountUsd = v
	}

	if c.minExecutionFee == nil {
		return errors.New("engine config: validation incomplete")
	}
	return nil
}

// GovAddress returns the parsed governance address.
func (c *Config) GovAddress() common.Address { return common.HexToAddress(c.Gov) }

// ExecutorAddress returns the parsed executor address.
func (c *Config) ExecutorAddress() common.Address { return common.HexToAddress(c.Executor) }

// SettlementAddress returns the engine's own settlement identity.
func (c *Config) SettlementAddress() common.Address { return common.HexToAddress(c.EngineAddress) }

// WrappedNativeAddress returns the wrapped-native token address.
func (c *Config) WrappedNativeAddress() common.Address { return common.HexToAddress(c.WrappedNative) }

// VaultAddress returns the position ledger's collateral vault.
func (c *Config) VaultAddress() common.Address { return common.HexToAddress(c.Vault) }

// MinExecutionFee returns the parsed fee floor.
func (c *Config) MinExecutionFee() *big.Int { return new(big.Int).Set(c.minExecutionFee) }

// MinPurchaseTokenAmountUsd returns the parsed reserved parameter.
func (c *Config) MinPurchaseTokenAmountUsd() *big.Int {
	return new(big.Int).Set(c.minPurchaseTokenAmountUsd)
}
