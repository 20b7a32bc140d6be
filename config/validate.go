package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lidofinance/anchor-collateral-steth/native/liquidator"
	"github.com/lidofinance/anchor-collateral-steth/storage"
)

// Resolved carries the typed values behind a validated Config.
type Resolved struct {
	Admin                         common.Address
	EmergencyAdmin                common.Address
	LiquidationsAdmin             common.Address
	NoLiquidationInterval         time.Duration
	RestrictedLiquidationInterval time.Duration
	RemoteDistributor             common.Hash
	Tolerances                    []*big.Int
	ReferenceMaxAge               time.Duration
}

// Validate checks the configuration without resolving it.
func (c *Config) Validate() error {
	_, err := c.Resolve()
	return err
}

// Resolve validates the configuration and converts it into typed values.
func (c *Config) Resolve() (Resolved, error) {
	var out Resolved
	var err error
	if out.Admin, err = parseAddress("roles.Admin", c.Roles.Admin, true); err != nil {
		return out, err
	}
	if out.EmergencyAdmin, err = parseAddress("roles.EmergencyAdmin", c.Roles.EmergencyAdmin, false); err != nil {
		return out, err
	}
	if out.LiquidationsAdmin, err = parseAddress("roles.LiquidationsAdmin", c.Roles.LiquidationsAdmin, false); err != nil {
		return out, err
	}

	out.NoLiquidationInterval = time.Duration(c.Collection.NoLiquidationIntervalSecs) * time.Second
	out.RestrictedLiquidationInterval = time.Duration(c.Collection.RestrictedLiquidationIntervalSecs) * time.Second
	if out.RestrictedLiquidationInterval < out.NoLiquidationInterval {
		return out, fmt.Errorf("collection: RestrictedLiquidationIntervalSecs < NoLiquidationIntervalSecs")
	}
	if distributor := strings.TrimSpace(c.Collection.RemoteDistributor); distributor != "" {
		raw, decodeErr := hexutil.Decode(distributor)
		if decodeErr != nil || len(raw) > common.HashLength {
			return out, fmt.Errorf("collection: invalid RemoteDistributor %q", distributor)
		}
		out.RemoteDistributor = common.BytesToHash(raw)
	}

	out.Tolerances = make([]*big.Int, len(c.Liquidator.MaxPriceDifferences))
	for i, raw := range c.Liquidator.MaxPriceDifferences {
		tol, parseErr := ParsePercent(raw)
		if parseErr != nil {
			return out, fmt.Errorf("liquidator: MaxPriceDifferences[%d]: %w", i, parseErr)
		}
		out.Tolerances[i] = tol
	}
	if err := liquidator.ValidateTolerances(out.Tolerances, len(out.Tolerances)); err != nil {
		return out, fmt.Errorf("liquidator: %w", err)
	}
	out.ReferenceMaxAge = time.Duration(c.Liquidator.ReferenceMaxAgeSecs) * time.Second

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendLevelDB, storage.BackendBolt:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return out, fmt.Errorf("storage: Path required for %s backend", c.Storage.Backend)
		}
	default:
		return out, fmt.Errorf("storage: unknown Backend %q", c.Storage.Backend)
	}
	return out, nil
}

// ParsePercent converts a decimal percentage such as "2.5" into the
// liquidator's fixed-point tolerance representation.
func ParsePercent(value string) (*big.Int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(value), "%")
	if trimmed == "" {
		return nil, fmt.Errorf("percentage required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid percentage %q", value)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("percentage must not be negative")
	}
	scaled := rat.Mul(rat, new(big.Rat).SetInt(liquidator.PercentScale))
	scaled.Quo(scaled, big.NewRat(100, 1))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}

func parseAddress(field, value string, required bool) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return common.Address{}, fmt.Errorf("%s is required", field)
		}
		return common.Address{}, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, value)
	}
	return common.HexToAddress(trimmed), nil
}
