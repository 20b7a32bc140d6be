package vault

import (
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// Scale is the fixed-point unit of the redemption rate.
	Scale = big.NewInt(1_000_000_000_000_000_000)
	// SharePricePrecision scales the base asset's pooled-amount-per-share price.
	SharePricePrecision = mustBigInt("1000000000000000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv returns floor(x*y/d). Inputs must be non-negative and the result must
// fit in 256 bits.
func mulDiv(x, y, d *big.Int) (*big.Int, error) {
	if x == nil || y == nil || d == nil || x.Sign() < 0 || y.Sign() < 0 || d.Sign() <= 0 {
		return nil, ErrArithmetic
	}
	ux, overflow := uint256.FromBig(x)
	if overflow {
		return nil, ErrArithmetic
	}
	uy, overflow := uint256.FromBig(y)
	if overflow {
		return nil, ErrArithmetic
	}
	ud, overflow := uint256.FromBig(d)
	if overflow {
		return nil, ErrArithmetic
	}
	z, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud)
	if overflow {
		return nil, ErrArithmetic
	}
	return z.ToBig(), nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
