package vault

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/liquidator"
)

func TestDepositMintsAtParityAndForwards(t *testing.T) {
	h := newHarness(t)
	amount := new(big.Int).Add(ether(10), big.NewInt(123))
	if err := h.steth.Approve(aliceAddr, vaultAddr, amount); err != nil {
		t.Fatalf("approve: %v", err)
	}
	receipt, err := h.vault.Deposit(aliceAddr, amount, remoteAlice, []byte("memo"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if receipt.Amount.Cmp(ether(10)) != 0 {
		t.Fatalf("amount must be truncated to wire precision, got %s", receipt.Amount)
	}
	if receipt.ReceiptAmount.Cmp(ether(10)) != 0 {
		t.Fatalf("expected 1:1 mint, got %s", receipt.ReceiptAmount)
	}
	if got := h.steth.BalanceOf(aliceAddr); got.Cmp(ether(90)) != 0 {
		t.Fatalf("only the truncated amount may be taken, alice has %s", got)
	}
	if got := h.receipt.BalanceOf(bridgeAddr); got.Cmp(ether(10)) != 0 {
		t.Fatalf("bridge should hold forwarded receipts, has %s", got)
	}
	transfers := h.bridge.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("expected one bridge transfer, got %d", len(transfers))
	}
	if transfers[0].Recipient != remoteAlice || transfers[0].WireAmount.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("unexpected transfer %+v", transfers[0])
	}
	if string(transfers[0].ExtraData) != "memo" {
		t.Fatalf("extra data not forwarded")
	}

	deposited := h.events.OfType(EventTypeDeposited)
	if len(deposited) != 1 || deposited[0].Attributes["receiptAmount"] != ether(10).String() {
		t.Fatalf("unexpected deposit events %+v", deposited)
	}
	supply := h.events.OfType(events.TypeTokenSupply)
	if len(supply) != 1 || supply[0].Attributes["reason"] != events.SupplyReasonMint {
		t.Fatalf("unexpected supply events %+v", supply)
	}
}

func TestDepositRejectsDustBelowWirePrecision(t *testing.T) {
	h := newHarness(t)
	dust := big.NewInt(9_999_999_999)
	_ = h.steth.Approve(aliceAddr, vaultAddr, dust)
	if _, err := h.vault.Deposit(aliceAddr, dust, remoteAlice, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := h.vault.Deposit(aliceAddr, big.NewInt(0), remoteAlice, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero, got %v", err)
	}
}

func TestDepositRollsBackWhenBridgeFails(t *testing.T) {
	h := newHarness(t)
	h.bridge.Halt(nil)
	_ = h.steth.Approve(aliceAddr, vaultAddr, ether(10))
	before := h.vault.State()

	_, err := h.vault.Deposit(aliceAddr, ether(10), remoteAlice, nil)
	if err == nil {
		t.Fatalf("expected forward failure")
	}
	if got := h.steth.BalanceOf(aliceAddr); got.Cmp(ether(100)) != 0 {
		t.Fatalf("failed deposit moved funds, alice has %s", got)
	}
	if h.receipt.TotalSupply().Sign() != 0 {
		t.Fatalf("failed deposit minted receipts")
	}
	if got := h.steth.Allowance(aliceAddr, vaultAddr); got.Cmp(ether(10)) != 0 {
		t.Fatalf("failed deposit consumed allowance, %s left", got)
	}
	if len(h.events.Events()) != 0 {
		t.Fatalf("failed deposit emitted %d events", len(h.events.Events()))
	}
	if h.vault.State().LastLiquidationTime != before.LastLiquidationTime {
		t.Fatalf("state changed")
	}

	h.bridge.Resume()
	h.deposit(aliceAddr, ether(10))
	if h.receipt.TotalSupply().Cmp(ether(10)) != 0 {
		t.Fatalf("deposit after resume should succeed")
	}
}

func TestDepositBlockedAfterRebaseUntilCollection(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(101, 100)

	if ok, err := h.vault.OperationsPermitted(); err != nil || ok {
		t.Fatalf("rebase must block operations, ok=%v err=%v", ok, err)
	}
	if h.vault.CanDepositOrWithdraw() {
		t.Fatalf("CanDepositOrWithdraw must follow the share price check")
	}
	_ = h.steth.Approve(bobAddr, vaultAddr, ether(1))
	_, err := h.vault.Deposit(bobAddr, ether(1), remoteAlice, nil)
	if !errors.Is(err, nativecommon.ErrOperationsNotPermitted) {
		t.Fatalf("expected operations not permitted, got %v", err)
	}

	h.advance(2 * time.Hour)
	if _, err := h.vault.CollectRewards(strangerAddr); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !h.vault.CanDepositOrWithdraw() {
		t.Fatalf("collection should re-open operations")
	}
	h.deposit(bobAddr, ether(1))
}

func TestWithdrawReleasesAtCurrentRate(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.bridgeBack(aliceAddr, ether(4))

	released, err := h.vault.Withdraw(aliceAddr, ether(4), LatestVersion, bobAddr)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if released.Cmp(ether(4)) != 0 {
		t.Fatalf("expected 4 ether at parity, got %s", released)
	}
	if got := h.steth.BalanceOf(bobAddr); got.Cmp(ether(104)) != 0 {
		t.Fatalf("recipient balance %s", got)
	}
	if h.receipt.BalanceOf(aliceAddr).Sign() != 0 || h.receipt.TotalSupply().Cmp(ether(6)) != 0 {
		t.Fatalf("receipts were not burnt")
	}
	withdrawn := h.events.OfType(EventTypeWithdrawn)
	if len(withdrawn) != 1 || withdrawn[0].Attributes["recipient"] != bobAddr.Hex() {
		t.Fatalf("unexpected withdraw events %+v", withdrawn)
	}
}

func TestWithdrawDefaultsRecipientToCaller(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.bridgeBack(aliceAddr, ether(1))
	if _, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion, common.Address{}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := h.steth.BalanceOf(aliceAddr); got.Cmp(ether(91)) != 0 {
		t.Fatalf("caller should receive the base asset, has %s", got)
	}
}

func TestWithdrawAfterLossUsesReducedRate(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(99, 100)

	if rate := h.mustRate(); rate.Cmp(new(big.Int).Quo(new(big.Int).Mul(Scale, big.NewInt(99)), big.NewInt(100))) != 0 {
		t.Fatalf("expected rate 0.99, got %s", rate)
	}
	h.advance(2 * time.Hour)
	collected, err := h.vault.CollectRewards(keeperAddr)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected.BaseAmount.Sign() != 0 || collected.Transfer != nil {
		t.Fatalf("a loss must not be liquidated: %+v", collected)
	}

	h.bridgeBack(aliceAddr, ether(1))
	quote, err := h.vault.QuoteWithdraw(ether(1))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	released, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion, common.Address{})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if released.Cmp(quote) != 0 || released.Cmp(new(big.Int).Quo(ether(99), big.NewInt(100))) != 0 {
		t.Fatalf("released %s, quoted %s", released, quote)
	}
}

func TestWithdrawRejectsStaleVersion(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.bridgeBack(aliceAddr, ether(2))

	if _, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion-1, common.Address{}); !errors.Is(err, nativecommon.ErrStaleVersion) {
		t.Fatalf("expected stale version, got %v", err)
	}
	if err := h.vault.BumpVersion(adminAddr); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if _, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion, common.Address{}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("bump must invalidate in-flight withdrawals, got %v", err)
	}
	if _, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion+1, common.Address{}); err != nil {
		t.Fatalf("withdraw at new version: %v", err)
	}
}

func TestWithdrawWithoutReceiptsFails(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	if _, err := h.vault.Withdraw(bobAddr, ether(1), LatestVersion, common.Address{}); err == nil {
		t.Fatalf("expected burn failure")
	}
	if h.receipt.TotalSupply().Cmp(ether(10)) != 0 {
		t.Fatalf("receipt supply changed")
	}
	if len(h.events.OfType(EventTypeWithdrawn)) != 0 {
		t.Fatalf("failed withdrawal emitted an event")
	}
}

func TestCollectRewardsSellsYieldThroughEveryHop(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(101, 100)

	pending, err := h.vault.PendingYield()
	if err != nil {
		t.Fatalf("pending yield: %v", err)
	}
	if pending.Cmp(NegligibleYield) <= 0 {
		t.Fatalf("expected material yield, got %s", pending)
	}

	h.advance(30 * time.Minute)
	if _, err := h.vault.CollectRewards(keeperAddr); !errors.Is(err, nativecommon.ErrTooSoon) {
		t.Fatalf("expected too soon, got %v", err)
	}
	h.advance(time.Hour)
	if _, err := h.vault.CollectRewards(strangerAddr); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("restricted window must exclude strangers, got %v", err)
	}

	collected, err := h.vault.CollectRewards(keeperAddr)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected.BaseAmount.Cmp(pending) != 0 {
		t.Fatalf("liquidated %s, expected %s", collected.BaseAmount, pending)
	}
	if collected.TargetAmount.Sign() <= 0 || collected.Transfer == nil {
		t.Fatalf("expected proceeds forwarded: %+v", collected)
	}
	if collected.Transfer.Asset != h.ust.Address() || collected.Transfer.Recipient != distributor {
		t.Fatalf("proceeds must go to the remote distributor in the target asset: %+v", collected.Transfer)
	}
	if h.ust.BalanceOf(bridgeAddr).Cmp(collected.TargetAmount) != 0 {
		t.Fatalf("bridge should hold the proceeds")
	}
	if h.ust.BalanceOf(vaultAddr).Sign() != 0 || h.weth.BalanceOf(liquidatorAddr).Sign() != 0 {
		t.Fatalf("no intermediate balances may remain")
	}
	if dust := h.steth.BalanceOf(liquidatorAddr); dust.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("liquidator kept %s of the base asset", dust)
	}
	if h.steth.BalanceOf(vaultAddr).Cmp(ether(10)) < 0 {
		t.Fatalf("principal must stay in custody, vault has %s", h.steth.BalanceOf(vaultAddr))
	}
	if rate := h.mustRate(); rate.Cmp(Scale) != 0 {
		t.Fatalf("rate should remain at parity, got %s", rate)
	}

	state := h.vault.State()
	if !state.LastLiquidationTime.Equal(h.now) {
		t.Fatalf("collection time not recorded")
	}
	if state.LastLiquidationSharePrice.Cmp(h.steth.SharePrice()) != 0 {
		t.Fatalf("baseline not re-anchored")
	}
	if sold := h.events.OfType(liquidator.EventTypeSold); len(sold) != 1 || sold[0].Attributes["hops"] != "3" {
		t.Fatalf("expected one three-hop sale, got %+v", sold)
	}
	rewards := h.events.OfType(EventTypeRewardsCollected)
	if len(rewards) != 1 || rewards[0].Attributes["baseAmount"] != pending.String() {
		t.Fatalf("unexpected rewards events %+v", rewards)
	}
}

func TestCollectRewardsNegligibleYieldOnlyReanchors(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.advance(3 * time.Hour)

	collected, err := h.vault.CollectRewards(strangerAddr)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected.BaseAmount.Sign() != 0 || collected.TargetAmount.Sign() != 0 || collected.Transfer != nil {
		t.Fatalf("nothing should be liquidated: %+v", collected)
	}
	if len(h.bridge.Transfers()) != 1 {
		t.Fatalf("only the deposit transfer should exist")
	}
	if !h.vault.State().LastLiquidationTime.Equal(h.now) {
		t.Fatalf("collection time not recorded")
	}
	if _, err := h.vault.CollectRewards(strangerAddr); !errors.Is(err, ErrTooSoon) {
		t.Fatalf("the window restarts after every collection, got %v", err)
	}
}

func TestCollectRewardsRevertsOnPriceDeviation(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(101, 100)
	h.advance(2 * time.Hour)
	h.oracle.Set(new(big.Int).Mul(liquidator.PriceScale, big.NewInt(2)), genesis)

	vaultBefore := h.steth.BalanceOf(vaultAddr)
	stateBefore := h.vault.State()
	_, err := h.vault.CollectRewards(strangerAddr)
	if !errors.Is(err, nativecommon.ErrExcessPriceDeviation) {
		t.Fatalf("expected excess deviation, got %v", err)
	}
	if h.steth.BalanceOf(vaultAddr).Cmp(vaultBefore) != 0 {
		t.Fatalf("yield left custody on a failed collection")
	}
	if h.steth.BalanceOf(liquidatorAddr).Sign() != 0 {
		t.Fatalf("liquidator kept the yield")
	}
	state := h.vault.State()
	if !state.LastLiquidationTime.Equal(stateBefore.LastLiquidationTime) || state.LastLiquidationSharePrice.Cmp(stateBefore.LastLiquidationSharePrice) != 0 {
		t.Fatalf("baseline moved on a failed collection")
	}
	if len(h.events.OfType(EventTypeRewardsCollected)) != 0 || len(h.events.OfType(liquidator.EventTypeSold)) != 0 {
		t.Fatalf("failed collection emitted events")
	}

	h.oracle.Set(new(big.Int).Set(liquidator.PriceScale), genesis)
	if _, err := h.vault.CollectRewards(strangerAddr); err != nil {
		t.Fatalf("collect after the reference recovers: %v", err)
	}
}

func TestCollectRewardsRequiresLiquidatorForMaterialYield(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(101, 100)
	h.advance(2 * time.Hour)
	if err := h.vault.SetRewardsLiquidator(adminAddr, nil); err != nil {
		t.Fatalf("unset liquidator: %v", err)
	}
	if _, err := h.vault.CollectRewards(strangerAddr); !errors.Is(err, ErrLiquidatorUnset) {
		t.Fatalf("expected liquidator unset, got %v", err)
	}
}

func TestInsuranceBurnIsNotYield(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	if _, err := h.insurance.BurnCover(adminAddr, whaleAddr, ether(50)); err != nil {
		t.Fatalf("burn cover: %v", err)
	}
	if ok, _ := h.vault.OperationsPermitted(); ok {
		t.Fatalf("a burn moves the share price and must block operations")
	}
	pending, err := h.vault.PendingYield()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("burnt shares must be netted out of yield, got %s", pending)
	}

	h.advance(2 * time.Hour)
	collected, err := h.vault.CollectRewards(strangerAddr)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected.BaseAmount.Sign() != 0 {
		t.Fatalf("burn was liquidated as yield: %s", collected.BaseAmount)
	}
	if h.vault.State().LastLiquidationSharesBurnt.Cmp(h.insurance.TotalSharesBurnt()) != 0 {
		t.Fatalf("burnt baseline not re-anchored")
	}
	if !h.vault.CanDepositOrWithdraw() {
		t.Fatalf("operations should reopen after collection")
	}
}

func TestYieldCappedBySurplusOverOutstanding(t *testing.T) {
	h := newHarness(t)
	h.deposit(aliceAddr, ether(10))
	h.rebase(98, 100)
	h.advance(2 * time.Hour)
	if _, err := h.vault.CollectRewards(strangerAddr); err != nil {
		t.Fatalf("collect after loss: %v", err)
	}
	// Recovering half the loss raises the share price above the new baseline
	// but the vault is still short of its outstanding receipts.
	h.rebase(99, 98)
	pending, err := h.vault.PendingYield()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("a shortfall must be made whole before yield is skimmed, got %s", pending)
	}
}
