// Package config loads a node's static configuration from a TOML file,
// the same library (naoina/toml) go-ethereum's own cmd/geth config
// loader uses, with CLI flags layered on top as overrides.
package config

import (
	"os"

	"github.com/naoina/toml"
)

// Config is the node's static configuration. CLI flags (see
// cmd/ledgerline) take precedence over whatever a file supplies.
type Config struct {
	BindAddress string `toml:"bind_address"`
	PeerAddress string `toml:"peer_address"`
	LedgerPath  string `toml:"ledger_path"`
	MetricsAddr string `toml:"metrics_address"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		BindAddress: "127.0.0.1:8080",
		LedgerPath:  "ledgerline-data",
	}
}

// Load reads and parses a TOML config file, starting from Default() so
// a partial file only overrides what it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
