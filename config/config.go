package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Allocation seeds an account balance at first start so buyers can fund
// purchases without an external bridge.
type Allocation struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

type Config struct {
	RPCAddress     string       `toml:"RPCAddress"`
	MetricsAddress string       `toml:"MetricsAddress"`
	DataDir        string       `toml:"DataDir"`
	Environment    string       `toml:"Environment"`
	Seller         string       `toml:"Seller"`
	Inspector      string       `toml:"Inspector"`
	Allocations    []Allocation `toml:"Allocations"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./deedvault-data"
	}
	if cfg.Allocations == nil {
		cfg.Allocations = []Allocation{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.SellerAddress(); err != nil {
		return err
	}
	if _, err := c.InspectorAddress(); err != nil {
		return err
	}
	for i := range c.Allocations {
		if !common.IsHexAddress(strings.TrimSpace(c.Allocations[i].Address)) {
			return fmt.Errorf("config: allocation %d has invalid address %q", i, c.Allocations[i].Address)
		}
	}
	return nil
}

// SellerAddress parses the configured seller address.
func (c *Config) SellerAddress() ([20]byte, error) {
	return parseAddress("Seller", c.Seller)
}

// InspectorAddress parses the configured inspector address.
func (c *Config) InspectorAddress() ([20]byte, error) {
	return parseAddress("Inspector", c.Inspector)
}

func parseAddress(field, raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("config: %s address required", field)
	}
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("config: invalid %s address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// createDefault creates and saves a default configuration file. The seller
// and inspector placeholders must be replaced before the node will start.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:     ":8545",
		MetricsAddress: ":9090",
		DataDir:        "./deedvault-data",
		Environment:    "local",
		Allocations:    []Allocation{},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
