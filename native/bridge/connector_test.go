package bridge

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

var (
	tokenAdmin = common.HexToAddress("0x01")
	vaultAddr  = common.HexToAddress("0xaa")
	bridgeAddr = common.HexToAddress("0xbc")
	remote     = common.HexToHash("0xabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd")
)

func TestAdjustAmountTruncatesToWirePrecision(t *testing.T) {
	c := NewConnector(token.NewLedger(), bridgeAddr)
	amount, _ := new(big.Int).SetString("1234567890123456789", 10)
	got := c.AdjustAmount(amount, 18)
	if got.String() != "1234567890000000000" {
		t.Fatalf("unexpected adjusted amount %s", got)
	}
	if c.AdjustAmount(big.NewInt(123), 6).Int64() != 123 {
		t.Fatalf("low precision assets must not be truncated")
	}
}

func TestForwardLocksFundsAndRecordsTransfer(t *testing.T) {
	ledger := token.NewLedger()
	beth := token.NewToken(ledger, common.HexToAddress("0xbe"), "bETH", 18, tokenAdmin)
	beth.Credit(vaultAddr, big.NewInt(30_000_000_000))
	c := NewConnector(ledger, bridgeAddr)

	if _, err := c.Forward(vaultAddr, beth, remote, big.NewInt(30_000_000_000), nil); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance failure, got %v", err)
	}
	if err := beth.Approve(vaultAddr, bridgeAddr, big.NewInt(30_000_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	transfer, err := c.Forward(vaultAddr, beth, remote, big.NewInt(30_000_000_000), []byte{0x8b, 0xad})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if transfer.Sequence != 1 || transfer.WireAmount.Int64() != 3 {
		t.Fatalf("unexpected transfer %+v", transfer)
	}
	if beth.BalanceOf(bridgeAddr).Int64() != 30_000_000_000 || beth.BalanceOf(vaultAddr).Sign() != 0 {
		t.Fatalf("funds not locked in connector")
	}
	if transfer.PayloadID == (common.Hash{}) {
		t.Fatalf("payload id not derived")
	}
}

func TestForwardRevertsWithLedger(t *testing.T) {
	ledger := token.NewLedger()
	beth := token.NewToken(ledger, common.HexToAddress("0xbe"), "bETH", 18, tokenAdmin)
	beth.Credit(vaultAddr, big.NewInt(100))
	_ = beth.Approve(vaultAddr, bridgeAddr, big.NewInt(100))
	c := NewConnector(ledger, bridgeAddr)

	snap := ledger.Snapshot()
	if _, err := c.Forward(vaultAddr, beth, remote, big.NewInt(100), nil); err != nil {
		t.Fatalf("forward: %v", err)
	}
	ledger.RevertToSnapshot(snap)
	if len(c.Transfers()) != 0 || c.Sequence() != 0 {
		t.Fatalf("transfer log not reverted")
	}
	if beth.BalanceOf(vaultAddr).Int64() != 100 {
		t.Fatalf("locked funds not reverted")
	}
}

func TestHaltedConnectorRejectsForward(t *testing.T) {
	c := NewConnector(token.NewLedger(), bridgeAddr)
	c.Halt(nil)
	if _, err := c.Forward(vaultAddr, nil, remote, big.NewInt(1), nil); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected halted error, got %v", err)
	}
	c.Resume()
	if _, err := c.Forward(vaultAddr, nil, common.Hash{}, big.NewInt(1), nil); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected recipient error, got %v", err)
	}
}
