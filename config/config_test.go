package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSellerHex = "0x1111111111111111111111111111111111111111"
const testInspectorHex = "0x2222222222222222222222222222222222222222"

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
Seller = "`+testSellerHex+`"
Inspector = "`+testInspectorHex+`"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8545", cfg.RPCAddress)
	require.Equal(t, ":9090", cfg.MetricsAddress)
	require.Equal(t, "./deedvault-data", cfg.DataDir)
	require.Empty(t, cfg.Allocations)

	seller, err := cfg.SellerAddress()
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, seller)
}

func TestLoadParsesAllocations(t *testing.T) {
	path := writeConfig(t, `
RPCAddress = ":9000"
Seller = "`+testSellerHex+`"
Inspector = "`+testInspectorHex+`"

[[Allocations]]
Address = "0x3333333333333333333333333333333333333333"
Balance = "20000000000000000000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.Len(t, cfg.Allocations, 1)
	require.Equal(t, "20000000000000000000", cfg.Allocations[0].Balance)
}

func TestLoadRejectsMissingSeller(t *testing.T) {
	path := writeConfig(t, `
Inspector = "`+testInspectorHex+`"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidAddresses(t *testing.T) {
	path := writeConfig(t, `
Seller = "not-an-address"
Inspector = "`+testInspectorHex+`"
`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `
Seller = "`+testSellerHex+`"
Inspector = "`+testInspectorHex+`"

[[Allocations]]
Address = "bogus"
Balance = "1"
`)
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8545", cfg.RPCAddress)

	// The generated file carries placeholder roles that must be filled in.
	_, err = cfg.SellerAddress()
	require.Error(t, err)
}
