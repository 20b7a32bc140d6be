package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SharePricePrecision scales the pooled-amount-per-share ratio.
var SharePricePrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

// Rebasing is a share-accounted asset. Holders own shares; balances are the
// holder's pro-rata claim on the total pooled amount, so a rebase changes every
// balance without moving a single share.
type Rebasing struct {
	ledger  *Ledger
	address common.Address
	symbol  string

	oracle common.Address
	burner common.Address

	totalPooled *big.Int
	totalShares *big.Int
	shares      map[common.Address]*big.Int
	allowances  map[allowanceKey]*big.Int
}

// NewRebasing constructs an empty rebasing asset. The oracle reports the total
// pooled amount; the burner may destroy shares to socialize losses.
func NewRebasing(ledger *Ledger, address common.Address, symbol string, oracle common.Address) *Rebasing {
	return &Rebasing{
		ledger:      ledger,
		address:     address,
		symbol:      symbol,
		oracle:      oracle,
		totalPooled: big.NewInt(0),
		totalShares: big.NewInt(0),
		shares:      make(map[common.Address]*big.Int),
		allowances:  make(map[allowanceKey]*big.Int),
	}
}

func (r *Rebasing) Address() common.Address { return r.address }
func (r *Rebasing) Symbol() string          { return r.symbol }
func (r *Rebasing) Decimals() uint8         { return 18 }

// TotalPooled returns the total amount backing all shares.
func (r *Rebasing) TotalPooled() *big.Int { return new(big.Int).Set(r.totalPooled) }

// TotalShares returns the number of shares outstanding.
func (r *Rebasing) TotalShares() *big.Int { return new(big.Int).Set(r.totalShares) }

// TotalSupply equals the total pooled amount.
func (r *Rebasing) TotalSupply() *big.Int { return r.TotalPooled() }

// SharesOf returns the shares owned by holder.
func (r *Rebasing) SharesOf(holder common.Address) *big.Int { return get(r.shares, holder) }

// SharePrice returns the pooled amount per share scaled by SharePricePrecision.
func (r *Rebasing) SharePrice() *big.Int {
	if r.totalShares.Sign() == 0 {
		return new(big.Int).Set(SharePricePrecision)
	}
	price := new(big.Int).Mul(r.totalPooled, SharePricePrecision)
	return price.Quo(price, r.totalShares)
}

// SharesByPooled converts an amount into shares, rounding down.
func (r *Rebasing) SharesByPooled(amount *big.Int) *big.Int {
	if r.totalPooled.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	shares := new(big.Int).Mul(amount, r.totalShares)
	return shares.Quo(shares, r.totalPooled)
}

// PooledByShares converts shares into an amount, rounding down.
func (r *Rebasing) PooledByShares(shares *big.Int) *big.Int {
	if r.totalShares.Sign() == 0 {
		return big.NewInt(0)
	}
	amount := new(big.Int).Mul(shares, r.totalPooled)
	return amount.Quo(amount, r.totalShares)
}

// BalanceOf returns the amount claimable by holder.
func (r *Rebasing) BalanceOf(holder common.Address) *big.Int {
	return r.PooledByShares(r.SharesOf(holder))
}

// Allowance returns the amount spender may move on behalf of owner.
func (r *Rebasing) Allowance(owner, spender common.Address) *big.Int {
	return get(r.allowances, allowanceKey{owner: owner, spender: spender})
}

// Submit pools amount on behalf of holder and mints the matching shares.
func (r *Rebasing) Submit(holder common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if holder == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	minted := r.SharesByPooled(amount)
	setEntry(r.ledger, r.shares, holder, new(big.Int).Add(r.SharesOf(holder), minted))
	setBig(r.ledger, &r.totalShares, new(big.Int).Add(r.totalShares, minted))
	setBig(r.ledger, &r.totalPooled, new(big.Int).Add(r.totalPooled, amount))
	return minted, nil
}

// Transfer moves the shares backing amount from one holder to another.
func (r *Rebasing) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if r.BalanceOf(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return r.TransferShares(from, to, r.SharesByPooled(amount))
}

// TransferShares moves a raw share amount between holders.
func (r *Rebasing) TransferShares(from, to common.Address, shares *big.Int) error {
	if shares == nil || shares.Sign() < 0 {
		return ErrInvalidAmount
	}
	held := r.SharesOf(from)
	if held.Cmp(shares) < 0 {
		return ErrInsufficientBalance
	}
	if shares.Sign() == 0 || from == to {
		return nil
	}
	setEntry(r.ledger, r.shares, from, held.Sub(held, shares))
	setEntry(r.ledger, r.shares, to, new(big.Int).Add(r.SharesOf(to), shares))
	return nil
}

// Approve sets the allowance granted by owner to spender.
func (r *Rebasing) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	setEntry(r.ledger, r.allowances, allowanceKey{owner: owner, spender: spender}, new(big.Int).Set(amount))
	return nil
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
func (r *Rebasing) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	key := allowanceKey{owner: owner, spender: spender}
	allowance := get(r.allowances, key)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := r.Transfer(owner, to, amount); err != nil {
		return err
	}
	setEntry(r.ledger, r.allowances, key, allowance.Sub(allowance, amount))
	return nil
}

// Report sets the total pooled amount. Only the oracle may report.
func (r *Rebasing) Report(caller common.Address, totalPooled *big.Int) error {
	if caller != r.oracle {
		return ErrNotAdmin
	}
	if totalPooled == nil || totalPooled.Sign() < 0 {
		return ErrInvalidAmount
	}
	setBig(r.ledger, &r.totalPooled, new(big.Int).Set(totalPooled))
	return nil
}

// Rebase scales the total pooled amount by numerator/denominator.
func (r *Rebasing) Rebase(caller common.Address, numerator, denominator int64) error {
	if denominator <= 0 || numerator < 0 {
		return ErrInvalidAmount
	}
	pooled := new(big.Int).Mul(r.totalPooled, big.NewInt(numerator))
	pooled.Quo(pooled, big.NewInt(denominator))
	return r.Report(caller, pooled)
}

// SetBurner designates the address allowed to burn shares.
func (r *Rebasing) SetBurner(caller, burner common.Address) error {
	if caller != r.oracle {
		return ErrNotAdmin
	}
	prev := r.burner
	r.ledger.Record(func() { r.burner = prev })
	r.burner = burner
	return nil
}

// BurnShares destroys shares owned by holder without touching the pooled
// amount, raising the price of every remaining share.
func (r *Rebasing) BurnShares(caller, holder common.Address, shares *big.Int) error {
	if caller != r.burner || r.burner == (common.Address{}) {
		return ErrNotAdmin
	}
	if shares == nil || shares.Sign() < 0 {
		return ErrInvalidAmount
	}
	held := r.SharesOf(holder)
	if held.Cmp(shares) < 0 {
		return ErrInsufficientBalance
	}
	if r.totalShares.Cmp(shares) <= 0 && r.totalPooled.Sign() > 0 {
		return ErrNoShares
	}
	setEntry(r.ledger, r.shares, holder, held.Sub(held, shares))
	setBig(r.ledger, &r.totalShares, new(big.Int).Sub(r.totalShares, shares))
	return nil
}
