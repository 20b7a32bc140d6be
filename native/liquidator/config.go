package liquidator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// PercentScale is 100% in the fixed-point tolerance representation.
	PercentScale = big.NewInt(1_000_000_000_000_000_000)
	// PriceScale is the fixed-point unit of execution and reference prices.
	PriceScale = big.NewInt(1_000_000_000_000_000_000)
)

// Config is the liquidator's mutable configuration. Tolerances are ordered by
// hop and expressed with PercentScale as 100%.
type Config struct {
	Admin      common.Address
	Vault      common.Address
	Tolerances []*big.Int
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := Config{Admin: c.Admin, Vault: c.Vault, Tolerances: make([]*big.Int, len(c.Tolerances))}
	for i, tol := range c.Tolerances {
		if tol != nil {
			out.Tolerances[i] = new(big.Int).Set(tol)
		}
	}
	return out
}

// ValidateTolerances checks that one tolerance is supplied per hop and that
// every tolerance lies in [0, 100%].
func ValidateTolerances(tolerances []*big.Int, hops int) error {
	if len(tolerances) != hops {
		return fmt.Errorf("%w: %d tolerances for %d hops", ErrInvalidConfig, len(tolerances), hops)
	}
	for i, tol := range tolerances {
		if tol == nil || tol.Sign() < 0 {
			return fmt.Errorf("%w: tolerance %d must be non-negative", ErrInvalidConfig, i)
		}
		if tol.Cmp(PercentScale) > 0 {
			return fmt.Errorf("%w: hop %d", ErrToleranceOutOfRange, i)
		}
	}
	return nil
}

// Percent converts a whole-number percentage into the fixed-point tolerance
// representation.
func Percent(p int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(p), PercentScale)
	return v.Quo(v, big.NewInt(100))
}
