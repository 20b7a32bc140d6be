package liquidator

import (
	"fmt"
	"math/big"
)

// Hop is one leg of the liquidation path: an execution venue paired with a
// harder-to-manipulate reference price for the same pair.
type Hop struct {
	Venue     Venue
	Reference PriceReference
}

// HopQuote records how one hop was priced.
type HopQuote struct {
	Venue          string
	AmountIn       *big.Int
	AmountOut      *big.Int
	ExecutionPrice *big.Int
	ReferencePrice *big.Int
	Deviation      *big.Int
}

// SafetyCheck walks the liquidation path and rejects it when any hop's
// execution price strays from its reference by more than the hop tolerance.
type SafetyCheck struct {
	hops       []Hop
	tolerances []*big.Int
}

// NewSafetyCheck constructs a check over hops with one tolerance per hop.
func NewSafetyCheck(hops []Hop, tolerances []*big.Int) (*SafetyCheck, error) {
	if len(hops) == 0 {
		return nil, fmt.Errorf("%w: at least one hop required", ErrInvalidConfig)
	}
	for i, hop := range hops {
		if hop.Venue == nil || hop.Reference == nil {
			return nil, fmt.Errorf("%w: hop %d incomplete", ErrInvalidConfig, i)
		}
	}
	if err := ValidateTolerances(tolerances, len(hops)); err != nil {
		return nil, err
	}
	tols := make([]*big.Int, len(tolerances))
	for i, tol := range tolerances {
		tols[i] = new(big.Int).Set(tol)
	}
	return &SafetyCheck{hops: append([]Hop(nil), hops...), tolerances: tols}, nil
}

// Hops returns the configured path.
func (c *SafetyCheck) Hops() []Hop { return append([]Hop(nil), c.hops...) }

// Deviation returns |execution-reference|/reference scaled by PercentScale.
func Deviation(execution, reference *big.Int) *big.Int {
	diff := new(big.Int).Sub(execution, reference)
	diff.Abs(diff)
	diff.Mul(diff, PercentScale)
	return diff.Quo(diff, reference)
}

// ValidateAndQuote prices amount through every hop, feeding each hop's output
// into the next, and returns the final output amount.
func (c *SafetyCheck) ValidateAndQuote(amount *big.Int) (*big.Int, []HopQuote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	in := new(big.Int).Set(amount)
	quotes := make([]HopQuote, 0, len(c.hops))
	for i, hop := range c.hops {
		out, err := hop.Venue.Quote(in)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidator: quote %s: %w", hop.Venue.Name(), err)
		}
		if out.Sign() <= 0 {
			return nil, nil, fmt.Errorf("liquidator: quote %s: %w", hop.Venue.Name(), ErrInsufficientLiquidity)
		}
		reference, err := hop.Reference.Price()
		if err != nil {
			return nil, nil, fmt.Errorf("liquidator: reference for %s: %w", hop.Venue.Name(), err)
		}
		if reference == nil || reference.Sign() <= 0 {
			return nil, nil, fmt.Errorf("liquidator: reference for %s: %w", hop.Venue.Name(), ErrNoReference)
		}
		execution := new(big.Int).Mul(out, PriceScale)
		execution.Quo(execution, in)
		deviation := Deviation(execution, reference)
		if deviation.Cmp(c.tolerances[i]) > 0 {
			return nil, nil, fmt.Errorf("%w: hop %d (%s) deviates %s, limit %s", ErrExcessPriceDeviation, i, hop.Venue.Name(), deviation, c.tolerances[i])
		}
		quotes = append(quotes, HopQuote{
			Venue:          hop.Venue.Name(),
			AmountIn:       new(big.Int).Set(in),
			AmountOut:      new(big.Int).Set(out),
			ExecutionPrice: execution,
			ReferencePrice: new(big.Int).Set(reference),
			Deviation:      deviation,
		})
		in = out
	}
	return in, quotes, nil
}
