package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset is the balance-bearing surface every managed asset exposes.
type Asset interface {
	Address() common.Address
	Symbol() string
	Decimals() uint8
	TotalSupply() *big.Int
	BalanceOf(holder common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	Approve(owner, spender common.Address, amount *big.Int) error
	TransferFrom(spender, owner, to common.Address, amount *big.Int) error
}

var (
	_ Asset = (*Token)(nil)
	_ Asset = (*Rebasing)(nil)
)
