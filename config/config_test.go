package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"escrowmarket/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.NotEmpty(t, cfg.RPCAddress)
	require.NoError(t, cfg.Validate())

	// The default file must round-trip.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
	require.Equal(t, cfg.Owner, again.Owner)
}

func TestLoadRejectsBadOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
RPCAddress = "127.0.0.1:8645"
DataDir = "./data"
Owner = "not-an-address"
Vault = "` + crypto.NewAddress(crypto.MktPrefix, [20]byte{0xEE}).String() + `"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Owner")
}

func TestValidateRequiresFields(t *testing.T) {
	owner := crypto.NewAddress(crypto.MktPrefix, [20]byte{0x01}).String()
	vault := crypto.NewAddress(crypto.MktPrefix, [20]byte{0xEE}).String()
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing rpc", Config{DataDir: "d", Owner: owner, Vault: vault}},
		{"missing datadir", Config{RPCAddress: "a", Owner: owner, Vault: vault}},
		{"missing owner", Config{RPCAddress: "a", DataDir: "d", Vault: vault}},
		{"missing vault", Config{RPCAddress: "a", DataDir: "d", Owner: owner}},
	}
	for _, tc := range cases {
		require.Error(t, tc.cfg.Validate(), tc.name)
	}
}

func TestLoadParsesRateLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
RPCAddress = "127.0.0.1:8645"
DataDir = "./data"
RPCRateLimit = 120
RPCRateWindowSeconds = 30
Owner = "` + crypto.NewAddress(crypto.MktPrefix, [20]byte{0x01}).String() + `"
Vault = "` + crypto.NewAddress(crypto.MktPrefix, [20]byte{0xEE}).String() + `"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(120), cfg.RPCRateLimit)
	require.Equal(t, uint32(30), cfg.RPCRateWindowSeconds)
}

func TestAddressAccessors(t *testing.T) {
	raw := [20]byte{0x42}
	cfg := Config{
		RPCAddress: "a",
		DataDir:    "d",
		Owner:      crypto.NewAddress(crypto.MktPrefix, raw).String(),
		Vault:      crypto.NewAddress(crypto.MktPrefix, [20]byte{0xEE}).String(),
	}
	require.NoError(t, cfg.Validate())
	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	require.Equal(t, raw, owner)
}
