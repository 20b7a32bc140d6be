package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a fungible balance ledger with a single privileged minter. The
// vault's receipt asset and the liquidation venues' intermediate assets are
// Tokens.
type Token struct {
	ledger   *Ledger
	address  common.Address
	symbol   string
	decimals uint8

	admin           common.Address
	minter          common.Address
	mintingDisabled bool

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// NewToken constructs a token bound to the supplied journal.
func NewToken(ledger *Ledger, address common.Address, symbol string, decimals uint8, admin common.Address) *Token {
	return &Token{
		ledger:     ledger,
		address:    address,
		symbol:     symbol,
		decimals:   decimals,
		admin:      admin,
		supply:     big.NewInt(0),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return t.decimals }
func (t *Token) Admin() common.Address   { return t.admin }
func (t *Token) Minter() common.Address  { return t.minter }
func (t *Token) MintingDisabled() bool   { return t.mintingDisabled }

// TotalSupply returns the outstanding supply.
func (t *Token) TotalSupply() *big.Int { return new(big.Int).Set(t.supply) }

// BalanceOf returns the balance held by holder.
func (t *Token) BalanceOf(holder common.Address) *big.Int { return get(t.balances, holder) }

// Allowance returns the amount spender may move on behalf of owner.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	return get(t.allowances, allowanceKey{owner: owner, spender: spender})
}

// SetMinter designates the single address allowed to mint and burn.
func (t *Token) SetMinter(caller, minter common.Address) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	prev := t.minter
	t.ledger.Record(func() { t.minter = prev })
	t.minter = minter
	return nil
}

// SetMintingDisabled toggles the administrative mint switch. Burning remains
// available so holders can always redeem.
func (t *Token) SetMintingDisabled(caller common.Address, disabled bool) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	setBool(t.ledger, &t.mintingDisabled, disabled)
	return nil
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	balance := t.BalanceOf(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	setEntry(t.ledger, t.balances, from, new(big.Int).Sub(balance, amount))
	setEntry(t.ledger, t.balances, to, new(big.Int).Add(t.BalanceOf(to), amount))
	return nil
}

// Approve sets the allowance granted by owner to spender.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	setEntry(t.ledger, t.allowances, allowanceKey{owner: owner, spender: spender}, new(big.Int).Set(amount))
	return nil
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	key := allowanceKey{owner: owner, spender: spender}
	allowance := get(t.allowances, key)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.Transfer(owner, to, amount); err != nil {
		return err
	}
	setEntry(t.ledger, t.allowances, key, allowance.Sub(allowance, amount))
	return nil
}

// Mint issues amount to recipient. Only the minter may call it.
func (t *Token) Mint(caller, to common.Address, amount *big.Int) error {
	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	if t.mintingDisabled {
		return ErrMintingDisabled
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	setBig(t.ledger, &t.supply, new(big.Int).Add(t.supply, amount))
	setEntry(t.ledger, t.balances, to, new(big.Int).Add(t.BalanceOf(to), amount))
	return nil
}

// Burn destroys amount held by from. Only the minter may call it.
func (t *Token) Burn(caller, from common.Address, amount *big.Int) error {
	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	balance := t.BalanceOf(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	setEntry(t.ledger, t.balances, from, new(big.Int).Sub(balance, amount))
	setBig(t.ledger, &t.supply, new(big.Int).Sub(t.supply, amount))
	return nil
}

// Credit mints amount without minter checks. Test fixtures and venue seeding
// use it to fund accounts.
func (t *Token) Credit(to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	setBig(t.ledger, &t.supply, new(big.Int).Add(t.supply, amount))
	setEntry(t.ledger, t.balances, to, new(big.Int).Add(t.BalanceOf(to), amount))
}
