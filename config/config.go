package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lidofinance/anchor-collateral-steth/storage"
)

// Config is the on-disk vault configuration.
type Config struct {
	NetworkName string     `toml:"NetworkName"`
	DataDir     string     `toml:"DataDir"`
	Roles       Roles      `toml:"roles"`
	Collection  Collection `toml:"collection"`
	Liquidator  Liquidator `toml:"liquidator"`
	Storage     Storage    `toml:"storage"`
}

// Load loads the configuration from the given path, writing a default file
// first when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "anchor-local"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vault-data"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.BackendLevelDB
	}
	if cfg.Storage.Backend != storage.BackendMemory && cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "state")
	}
	if cfg.Liquidator.MaxPriceDifferences == nil {
		cfg.Liquidator.MaxPriceDifferences = []string{}
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh deployment. Roles
// are left empty and must be filled in before the vault can be initialized.
func Default() *Config {
	return &Config{
		NetworkName: "anchor-local",
		DataDir:     "./vault-data",
		Collection: Collection{
			NoLiquidationIntervalSecs:         24 * 60 * 60,
			RestrictedLiquidationIntervalSecs: 26 * 60 * 60,
		},
		Liquidator: Liquidator{
			MaxPriceDifferences: []string{"3", "3", "3"},
			ReferenceMaxAgeSecs: 60 * 60,
		},
		Storage: Storage{
			Backend: storage.BackendLevelDB,
			Path:    filepath.Join("./vault-data", "state"),
		},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
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
