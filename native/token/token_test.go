package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

var (
	admin  = common.HexToAddress("0x01")
	minter = common.HexToAddress("0x02")
	alice  = common.HexToAddress("0xa1")
	bob    = common.HexToAddress("0xb0")
)

func newReceipt(t *testing.T) (*Ledger, *Token) {
	t.Helper()
	ledger := NewLedger()
	tok := NewToken(ledger, common.HexToAddress("0xbe"), "bETH", 18, admin)
	if err := tok.SetMinter(admin, minter); err != nil {
		t.Fatalf("set minter: %v", err)
	}
	return ledger, tok
}

func TestTokenMintBurnRestrictedToMinter(t *testing.T) {
	_, tok := newReceipt(t)
	if err := tok.Mint(alice, alice, big.NewInt(10)); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	if err := tok.Mint(minter, alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Burn(alice, alice, big.NewInt(1)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected minter error, got %v", err)
	}
	if err := tok.Burn(minter, alice, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := tok.Burn(minter, alice, big.NewInt(4)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if tok.TotalSupply().Int64() != 6 || tok.BalanceOf(alice).Int64() != 6 {
		t.Fatalf("unexpected supply %s balance %s", tok.TotalSupply(), tok.BalanceOf(alice))
	}
}

func TestTokenMintingDisabled(t *testing.T) {
	_, tok := newReceipt(t)
	if err := tok.SetMintingDisabled(alice, true); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin error, got %v", err)
	}
	if err := tok.SetMintingDisabled(admin, true); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := tok.Mint(minter, alice, big.NewInt(1)); !errors.Is(err, ErrMintingDisabled) {
		t.Fatalf("expected minting disabled, got %v", err)
	}
}

func TestTokenTransferFromConsumesAllowance(t *testing.T) {
	_, tok := newReceipt(t)
	tok.Credit(alice, big.NewInt(100))
	if err := tok.TransferFrom(bob, alice, bob, big.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if err := tok.Approve(alice, bob, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(bob, alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if tok.Allowance(alice, bob).Int64() != 20 {
		t.Fatalf("unexpected allowance %s", tok.Allowance(alice, bob))
	}
	if tok.BalanceOf(bob).Int64() != 40 || tok.BalanceOf(alice).Int64() != 60 {
		t.Fatalf("unexpected balances")
	}
}

func TestLedgerRevertRestoresEveryAsset(t *testing.T) {
	ledger, tok := newReceipt(t)
	steth := NewRebasing(ledger, common.HexToAddress("0x5e"), "stETH", admin)
	tok.Credit(alice, big.NewInt(100))
	if _, err := steth.Submit(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := ledger.Snapshot()
	if err := tok.Transfer(alice, bob, big.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := steth.Transfer(alice, bob, big.NewInt(500)); err != nil {
		t.Fatalf("rebasing transfer: %v", err)
	}
	if err := steth.Rebase(admin, 2, 1); err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if err := tok.SetMintingDisabled(admin, true); err != nil {
		t.Fatalf("disable: %v", err)
	}
	ledger.RevertToSnapshot(snap)

	if tok.BalanceOf(alice).Int64() != 100 || tok.BalanceOf(bob).Sign() != 0 {
		t.Fatalf("token balances not restored")
	}
	if steth.BalanceOf(alice).Int64() != 1000 || steth.BalanceOf(bob).Sign() != 0 {
		t.Fatalf("rebasing balances not restored")
	}
	if steth.TotalPooled().Int64() != 1000 {
		t.Fatalf("pooled amount not restored: %s", steth.TotalPooled())
	}
	if tok.MintingDisabled() {
		t.Fatalf("mint switch not restored")
	}
	if ledger.Len() != snap {
		t.Fatalf("journal not truncated")
	}
}

func TestRebasingBalancesFollowRebase(t *testing.T) {
	ledger := NewLedger()
	steth := NewRebasing(ledger, common.HexToAddress("0x5e"), "stETH", admin)
	if _, err := steth.Submit(alice, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := steth.Submit(bob, big.NewInt(3_000_000)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sharesBefore := steth.SharesOf(alice)
	if err := steth.Rebase(admin, 101, 100); err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if steth.SharesOf(alice).Cmp(sharesBefore) != 0 {
		t.Fatalf("rebase must not move shares")
	}
	if steth.BalanceOf(alice).Int64() != 1_010_000 {
		t.Fatalf("unexpected rebased balance %s", steth.BalanceOf(alice))
	}
	want := new(big.Int).Mul(SharePricePrecision, big.NewInt(101))
	want.Quo(want, big.NewInt(100))
	if steth.SharePrice().Cmp(want) != 0 {
		t.Fatalf("unexpected share price %s", steth.SharePrice())
	}
	if err := steth.Rebase(alice, 2, 1); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected oracle restriction, got %v", err)
	}
}

func TestRebasingBurnSharesRaisesPrice(t *testing.T) {
	ledger := NewLedger()
	steth := NewRebasing(ledger, common.HexToAddress("0x5e"), "stETH", admin)
	burner := common.HexToAddress("0xbb")
	if _, err := steth.Submit(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := steth.Submit(burner, big.NewInt(1000)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := steth.BurnShares(burner, burner, big.NewInt(10)); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected burner restriction, got %v", err)
	}
	if err := steth.SetBurner(admin, burner); err != nil {
		t.Fatalf("set burner: %v", err)
	}
	before := steth.SharePrice()
	if err := steth.BurnShares(burner, burner, big.NewInt(1000)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if steth.SharePrice().Cmp(before) <= 0 {
		t.Fatalf("burn should raise share price")
	}
	if steth.BalanceOf(alice).Int64() != 2000 {
		t.Fatalf("remaining holder should absorb the pool, got %s", steth.BalanceOf(alice))
	}
}

func TestLedgerDeferredActionsFollowCommitAndRevert(t *testing.T) {
	ledger, tok := newReceipt(t)
	var fired []string

	snap := ledger.Snapshot()
	tok.Credit(alice, big.NewInt(1))
	ledger.Defer(func() { fired = append(fired, "reverted") })
	ledger.RevertToSnapshot(snap)

	tok.Credit(alice, big.NewInt(1))
	ledger.Defer(func() { fired = append(fired, "first") })
	ledger.Defer(func() { fired = append(fired, "second") })
	if len(fired) != 0 {
		t.Fatalf("deferred actions must wait for commit")
	}
	ledger.Commit()
	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Fatalf("unexpected deferred actions: %v", fired)
	}
	if ledger.Len() != 0 {
		t.Fatalf("commit should clear the journal")
	}
	if tok.BalanceOf(alice).Int64() != 1 {
		t.Fatalf("commit must keep applied changes")
	}
}
