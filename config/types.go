package config

// Roles names the principals installed on the vault. Addresses are hex
// encoded; EmergencyAdmin and LiquidationsAdmin may be left empty.
type Roles struct {
	Admin             string `toml:"Admin"`
	EmergencyAdmin    string `toml:"EmergencyAdmin"`
	LiquidationsAdmin string `toml:"LiquidationsAdmin"`
}

// Collection controls the reward collection window and where proceeds are
// forwarded.
type Collection struct {
	NoLiquidationIntervalSecs         uint64 `toml:"NoLiquidationIntervalSecs"`
	RestrictedLiquidationIntervalSecs uint64 `toml:"RestrictedLiquidationIntervalSecs"`
	RemoteDistributor                 string `toml:"RemoteDistributor"`
}

// Liquidator holds the per-hop price tolerances, as decimal percentages in
// hop order, and the maximum age of an operator reference price.
type Liquidator struct {
	MaxPriceDifferences []string `toml:"MaxPriceDifferences"`
	ReferenceMaxAgeSecs uint64   `toml:"ReferenceMaxAgeSecs"`
}

// Storage selects the persistence backend for the vault record.
type Storage struct {
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
}
