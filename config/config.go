package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"escrowmarket/crypto"
)

// Config is the escrowd daemon configuration.
type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`
	Env        string `toml:"Env"`
	LogFile    string `toml:"LogFile"`

	// RPCToken gates mutating RPC methods when set. The ESCROWD_RPC_TOKEN
	// environment variable takes precedence so the secret can stay out of
	// the config file.
	RPCToken string `toml:"RPCToken"`

	// RPCRateLimit caps mutating RPC calls per client address per window.
	// Zero disables the limit.
	RPCRateLimit uint32 `toml:"RPCRateLimit"`
	// RPCRateWindowSeconds is the length of the rate-limit window. Zero
	// falls back to the server default of one minute.
	RPCRateWindowSeconds uint32 `toml:"RPCRateWindowSeconds"`

	// Owner is the bech32 identity allowed to run the aggregate reports.
	Owner string `toml:"Owner"`
	// Vault is the bech32 custody account deposits are held in.
	Vault string `toml:"Vault"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the structural integrity of the configuration.
func (c *Config) Validate() error {
	if c.RPCAddress == "" {
		return fmt.Errorf("RPCAddress is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DataDir is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("Owner is required")
	}
	if _, err := crypto.DecodeAddress(c.Owner); err != nil {
		return fmt.Errorf("invalid Owner address: %w", err)
	}
	if c.Vault == "" {
		return fmt.Errorf("Vault is required")
	}
	if _, err := crypto.DecodeAddress(c.Vault); err != nil {
		return fmt.Errorf("invalid Vault address: %w", err)
	}
	return nil
}

// OwnerAddress returns the decoded owner identity. Call Validate first.
func (c *Config) OwnerAddress() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.Owner)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// VaultAddress returns the decoded custody account. Call Validate first.
func (c *Config) VaultAddress() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.Vault)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress: "127.0.0.1:8645",
		DataDir:    "./data",
		Env:        "dev",
		// A placeholder identity: operators must replace both addresses
		// before exposing the daemon.
		Owner: crypto.NewAddress(crypto.MktPrefix, [20]byte{0x01}).String(),
		Vault: crypto.NewAddress(crypto.MktPrefix, [20]byte{0xEE}).String(),
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
