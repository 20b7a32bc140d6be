package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RateEngine computes the redemption rate and separates yield from principal
// using the base asset's own share accounting. It reads the state it is given
// and writes only the collection baseline.
type RateEngine struct {
	state     *State
	vault     common.Address
	base      BaseAsset
	receipt   ReceiptIssuer
	insurance InsuranceConnector
}

func newRateEngine(vault common.Address, state *State, c *Collaborators) RateEngine {
	return RateEngine{
		state:     state,
		vault:     vault,
		base:      c.BaseAsset,
		receipt:   c.Receipt,
		insurance: c.Insurance,
	}
}

// outstanding returns the receipt supply that is still backed by custody.
func (r RateEngine) outstanding() *big.Int {
	supply := r.receipt.TotalSupply()
	supply.Sub(supply, cloneBig(r.state.TotalReceiptRefunded))
	if supply.Sign() < 0 {
		return big.NewInt(0)
	}
	return supply
}

// CurrentRate returns the base asset redeemable per receipt unit, scaled by
// Scale. The rate never exceeds Scale: surplus custody is yield that belongs
// to the next collection, not to redeemers.
func (r RateEngine) CurrentRate() (*big.Int, error) {
	denominator := r.outstanding()
	if denominator.Sign() == 0 {
		return new(big.Int).Set(Scale), nil
	}
	balance := r.base.BalanceOf(r.vault)
	if balance.Cmp(denominator) >= 0 {
		return new(big.Int).Set(Scale), nil
	}
	return mulDiv(balance, Scale, denominator)
}

// SharePrice returns the base asset's pooled amount per share, scaled by
// SharePricePrecision.
func (r RateEngine) SharePrice() (*big.Int, error) {
	shares := r.base.TotalShares()
	if shares.Sign() == 0 {
		return new(big.Int).Set(SharePricePrecision), nil
	}
	return mulDiv(r.base.TotalPooled(), SharePricePrecision, shares)
}

// OperationsPermitted reports whether the base asset's share price is still
// the one anchored by the last collection. Rebases and insurance burns both
// move it and block deposits and withdrawals until the next collection.
func (r RateEngine) OperationsPermitted() (bool, error) {
	price, err := r.SharePrice()
	if err != nil {
		return false, err
	}
	return price.Cmp(cloneBig(r.state.LastLiquidationSharePrice)) == 0, nil
}

func (r RateEngine) requirePermitted() error {
	ok, err := r.OperationsPermitted()
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperationsNotPermitted
	}
	return nil
}

// QuoteDeposit returns the receipt amount minted for amount of base asset,
// rounded down.
func (r RateEngine) QuoteDeposit(amount *big.Int) (*big.Int, error) {
	if err := r.requirePermitted(); err != nil {
		return nil, err
	}
	rate, err := r.CurrentRate()
	if err != nil {
		return nil, err
	}
	if rate.Sign() == 0 {
		return nil, ErrOperationsNotPermitted
	}
	return mulDiv(amount, Scale, rate)
}

// QuoteWithdraw returns the base asset released for receiptAmount, rounded
// down.
func (r RateEngine) QuoteWithdraw(receiptAmount *big.Int) (*big.Int, error) {
	if err := r.requirePermitted(); err != nil {
		return nil, err
	}
	rate, err := r.CurrentRate()
	if err != nil {
		return nil, err
	}
	return mulDiv(receiptAmount, rate, Scale)
}

// SharesBurnt returns the insurance connector's cumulative burnt shares, or
// the recorded baseline when no connector is set.
func (r RateEngine) SharesBurnt() *big.Int {
	if r.insurance == nil {
		return cloneBig(r.state.LastLiquidationSharesBurnt)
	}
	return cloneBig(r.insurance.TotalSharesBurnt())
}

// Yield returns the base-asset amount accrued since the last collection. The
// share price is first corrected for shares burnt by insurance since the
// baseline, then the gain is capped at the custody surplus over outstanding
// receipts so a shortfall is made whole before anything is skimmed.
func (r RateEngine) Yield() (*big.Int, error) {
	totalShares := r.base.TotalShares()
	if totalShares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	burntDelta := new(big.Int).Sub(r.SharesBurnt(), cloneBig(r.state.LastLiquidationSharesBurnt))
	if burntDelta.Sign() < 0 {
		burntDelta.SetInt64(0)
	}
	netPrice, err := mulDiv(r.base.TotalPooled(), SharePricePrecision, totalShares.Add(totalShares, burntDelta))
	if err != nil {
		return nil, err
	}
	gain := netPrice.Sub(netPrice, cloneBig(r.state.LastLiquidationSharePrice))
	if gain.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	yield, err := mulDiv(r.base.SharesOf(r.vault), gain, SharePricePrecision)
	if err != nil {
		return nil, err
	}
	surplus := r.base.BalanceOf(r.vault)
	surplus.Sub(surplus, r.outstanding())
	if surplus.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return minBig(yield, surplus), nil
}

// RecordCollectionBaseline anchors the baseline used by OperationsPermitted
// and Yield.
func (r RateEngine) RecordCollectionBaseline(sharePrice, sharesBurnt *big.Int, at time.Time) {
	r.state.LastLiquidationSharePrice = cloneBig(sharePrice)
	r.state.LastLiquidationSharesBurnt = cloneBig(sharesBurnt)
	r.state.LastLiquidationTime = at
}
