package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

// WireDecimals is the precision carried by the cross-network transfer payload.
const WireDecimals = 8

var (
	ErrInvalidAmount = errors.New("bridge: amount must be positive")
	ErrHalted        = errors.New("bridge: connector halted")
	ErrNoRecipient   = errors.New("bridge: remote recipient required")
)

// Transfer is a single outbound cross-network transfer.
type Transfer struct {
	Sequence   uint64
	Asset      common.Address
	Sender     common.Address
	Recipient  common.Hash
	Amount     *big.Int
	WireAmount *big.Int
	ExtraData  []byte
	PayloadID  common.Hash
}

// Connector locks forwarded assets and records the transfers it would relay to
// the remote network.
type Connector struct {
	ledger    *token.Ledger
	address   common.Address
	transfers []Transfer
	sequence  uint64
	halted    error
}

// NewConnector constructs a connector bound to the host journal.
func NewConnector(ledger *token.Ledger, address common.Address) *Connector {
	return &Connector{ledger: ledger, address: address}
}

// Address returns the connector's custody address.
func (c *Connector) Address() common.Address { return c.address }

// AdjustAmount truncates amount to the precision the wire format can carry
// for an asset with the supplied decimals.
func (c *Connector) AdjustAmount(amount *big.Int, decimals uint8) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if decimals <= WireDecimals {
		return new(big.Int).Set(amount)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-WireDecimals)), nil)
	adjusted := new(big.Int).Quo(amount, unit)
	return adjusted.Mul(adjusted, unit)
}

// Halt makes every subsequent Forward fail with err until Resume is called.
// Operators use it to model an unavailable remote network.
func (c *Connector) Halt(err error) {
	if err == nil {
		err = ErrHalted
	}
	c.halted = err
}

// Resume clears a previous Halt.
func (c *Connector) Resume() { c.halted = nil }

// Forward pulls amount of asset from sender (which must have approved the
// connector) and records a transfer to recipient on the remote network.
func (c *Connector) Forward(sender common.Address, asset token.Asset, recipient common.Hash, amount *big.Int, extraData []byte) (Transfer, error) {
	if c.halted != nil {
		return Transfer{}, c.halted
	}
	if amount == nil || amount.Sign() <= 0 {
		return Transfer{}, ErrInvalidAmount
	}
	if recipient == (common.Hash{}) {
		return Transfer{}, ErrNoRecipient
	}
	if err := asset.TransferFrom(c.address, sender, c.address, amount); err != nil {
		return Transfer{}, fmt.Errorf("bridge: lock %s: %w", asset.Address().Hex(), err)
	}
	wire := new(big.Int).Set(amount)
	if d := asset.Decimals(); d > WireDecimals {
		wire.Quo(wire, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d-WireDecimals)), nil))
	}

	seq := c.sequence + 1
	transfer := Transfer{
		Sequence:   seq,
		Asset:      asset.Address(),
		Sender:     sender,
		Recipient:  recipient,
		Amount:     new(big.Int).Set(amount),
		WireAmount: wire,
		ExtraData:  append([]byte(nil), extraData...),
	}
	transfer.PayloadID = payloadID(transfer)

	prevSeq, prevLen := c.sequence, len(c.transfers)
	c.ledger.Record(func() {
		c.sequence = prevSeq
		c.transfers = c.transfers[:prevLen]
	})
	c.sequence = seq
	c.transfers = append(c.transfers, transfer)
	return transfer, nil
}

// Transfers returns the recorded transfers in sequence order.
func (c *Connector) Transfers() []Transfer {
	out := make([]Transfer, len(c.transfers))
	copy(out, c.transfers)
	return out
}

// Sequence returns the sequence number of the last recorded transfer.
func (c *Connector) Sequence() uint64 { return c.sequence }

func payloadID(t Transfer) common.Hash {
	var seq [8]byte
	for i := 0; i < 8; i++ {
		seq[7-i] = byte(t.Sequence >> (8 * i))
	}
	return crypto.Keccak256Hash(seq[:], t.Asset.Bytes(), t.Recipient.Bytes(), common.LeftPadBytes(t.WireAmount.Bytes(), 32), t.ExtraData)
}
