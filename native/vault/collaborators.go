package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/native/bridge"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

// BaseAsset is the custodied rebasing asset. Balances move with the pooled
// amount while share counts only move on transfer.
type BaseAsset interface {
	token.Asset
	SharesOf(holder common.Address) *big.Int
	TotalPooled() *big.Int
	TotalShares() *big.Int
}

// ReceiptIssuer is the receipt asset. The vault must be its minter.
type ReceiptIssuer interface {
	token.Asset
	Mint(minter, to common.Address, amount *big.Int) error
	Burn(minter, from common.Address, amount *big.Int) error
}

// BridgeConnector forwards assets to the remote network. A failed forward
// rolls back the whole calling operation.
type BridgeConnector interface {
	Address() common.Address
	AdjustAmount(amount *big.Int, decimals uint8) *big.Int
	Forward(sender common.Address, asset token.Asset, recipient common.Hash, amount *big.Int, extraData []byte) (bridge.Transfer, error)
}

// RewardsLiquidator sells the base asset it holds for TargetAsset and sends the
// proceeds to recipient. Only the vault may call Liquidate.
type RewardsLiquidator interface {
	Address() common.Address
	TargetAsset() token.Asset
	Liquidate(caller, recipient common.Address) (*big.Int, error)
}

// InsuranceConnector exposes the cumulative base-asset shares burnt to cover
// losses.
type InsuranceConnector interface {
	Address() common.Address
	TotalSharesBurnt() *big.Int
}

// Journal is the host's undo log covering every collaborator the vault
// touches during an operation. Journals that also implement Commit() are
// committed after every successful operation, so hosts must not hold
// snapshots across vault calls.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Collaborators bundles the handles the vault dispatches to. Nil handles are
// unset references.
type Collaborators struct {
	BaseAsset  BaseAsset
	Receipt    ReceiptIssuer
	Bridge     BridgeConnector
	Liquidator RewardsLiquidator
	Insurance  InsuranceConnector
}

func bridgeAddress(b BridgeConnector) common.Address {
	if b == nil {
		return common.Address{}
	}
	return b.Address()
}

func liquidatorAddress(l RewardsLiquidator) common.Address {
	if l == nil {
		return common.Address{}
	}
	return l.Address()
}

func insuranceAddress(i InsuranceConnector) common.Address {
	if i == nil {
		return common.Address{}
	}
	return i.Address()
}

func assetAddress(a token.Asset) common.Address {
	if a == nil {
		return common.Address{}
	}
	return a.Address()
}
