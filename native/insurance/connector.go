package insurance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

const moduleName = "insurance"

// ShareBurner destroys shares of the base asset. The connector's address must
// be registered as the asset's burner.
type ShareBurner interface {
	BurnShares(caller, holder common.Address, shares *big.Int) error
	SharesByPooled(amount *big.Int) *big.Int
}

// Connector tracks the cumulative number of base-asset shares burnt to cover
// losses. Burns raise the per-share price exactly like yield does, so the vault
// reads the counter to net them out of its reward computation.
type Connector struct {
	ledger  *token.Ledger
	address common.Address
	admin   common.Address
	asset   ShareBurner
	burnt   *big.Int
}

// NewConnector constructs a connector for the supplied asset.
func NewConnector(ledger *token.Ledger, address, admin common.Address, asset ShareBurner) *Connector {
	return &Connector{
		ledger:  ledger,
		address: address,
		admin:   admin,
		asset:   asset,
		burnt:   big.NewInt(0),
	}
}

// Address returns the connector address.
func (c *Connector) Address() common.Address { return c.address }

// TotalSharesBurnt returns the cumulative shares burnt for cover.
func (c *Connector) TotalSharesBurnt() *big.Int { return new(big.Int).Set(c.burnt) }

// BurnCover burns the shares backing amount from holder's position.
func (c *Connector) BurnCover(caller, holder common.Address, amount *big.Int) (*big.Int, error) {
	if err := nativecommon.Authorize(moduleName, caller, c.admin); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("insurance: cover amount must be positive")
	}
	shares := c.asset.SharesByPooled(amount)
	if err := c.asset.BurnShares(c.address, holder, shares); err != nil {
		return nil, fmt.Errorf("insurance: burn cover shares: %w", err)
	}
	prev := c.burnt
	c.ledger.Record(func() { c.burnt = prev })
	c.burnt = new(big.Int).Add(prev, shares)
	return shares, nil
}
