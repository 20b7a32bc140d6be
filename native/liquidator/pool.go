package liquidator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

const feeDenominator = 10_000

// Venue executes one direction of a swap.
type Venue interface {
	Name() string
	Address() common.Address
	TokenIn() token.Asset
	TokenOut() token.Asset
	// Quote returns the output for amountIn at current liquidity.
	Quote(amountIn *big.Int) (*big.Int, error)
	// Swap pulls amountIn from trader, which must have approved the venue, and
	// pays the output to trader.
	Swap(trader common.Address, amountIn, minOut *big.Int) (*big.Int, error)
}

// Pool is a constant-product venue whose reserves are its own balances of the
// two assets.
type Pool struct {
	name     string
	address  common.Address
	tokenIn  token.Asset
	tokenOut token.Asset
	feeBps   int64
}

// NewPool constructs a pool selling tokenOut for tokenIn.
func NewPool(name string, address common.Address, tokenIn, tokenOut token.Asset, feeBps int64) (*Pool, error) {
	if tokenIn == nil || tokenOut == nil {
		return nil, fmt.Errorf("%w: pool %s requires both assets", ErrInvalidConfig, name)
	}
	if feeBps < 0 || feeBps >= feeDenominator {
		return nil, fmt.Errorf("%w: pool %s fee %d bps", ErrInvalidConfig, name, feeBps)
	}
	return &Pool{name: name, address: address, tokenIn: tokenIn, tokenOut: tokenOut, feeBps: feeBps}, nil
}

func (p *Pool) Name() string            { return p.name }
func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) TokenIn() token.Asset    { return p.tokenIn }
func (p *Pool) TokenOut() token.Asset   { return p.tokenOut }

// Reserves returns the pool's current balances.
func (p *Pool) Reserves() (in, out *big.Int) {
	return p.tokenIn.BalanceOf(p.address), p.tokenOut.BalanceOf(p.address)
}

// SpotPrice returns the marginal output per input unit scaled by PriceScale.
func (p *Pool) SpotPrice() (*big.Int, error) {
	in, out := p.Reserves()
	if in.Sign() == 0 || out.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	price := new(big.Int).Mul(out, PriceScale)
	return price.Quo(price, in), nil
}

func (p *Pool) Quote(amountIn *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	reserveIn, reserveOut := p.Reserves()
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	withFee := new(big.Int).Mul(amountIn, big.NewInt(feeDenominator-p.feeBps))
	numerator := new(big.Int).Mul(withFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator))
	denominator.Add(denominator, withFee)
	return numerator.Quo(numerator, denominator), nil
}

func (p *Pool) Swap(trader common.Address, amountIn, minOut *big.Int) (*big.Int, error) {
	out, err := p.Quote(amountIn)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: %s returned %s, want %s", ErrSlippage, p.name, out, minOut)
	}
	if err := p.tokenIn.TransferFrom(p.address, trader, p.address, amountIn); err != nil {
		return nil, fmt.Errorf("liquidator: %s pull input: %w", p.name, err)
	}
	if err := p.tokenOut.Transfer(p.address, trader, out); err != nil {
		return nil, fmt.Errorf("liquidator: %s pay output: %w", p.name, err)
	}
	return out, nil
}
