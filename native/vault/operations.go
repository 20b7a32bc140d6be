package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
)

// Deposit locks amount of base asset from caller, mints receipts at the
// current rate and forwards them to remoteRecipient. The amount is first
// truncated to the bridge's wire precision; only the truncated amount is taken
// from the caller.
func (v *Vault) Deposit(caller common.Address, amount *big.Int, remoteRecipient common.Hash, extraData []byte) (DepositReceipt, error) {
	var receipt DepositReceipt
	err := v.execute("deposit", func(t *txn) error {
		if err := t.requireRunning(); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if t.c.Bridge == nil {
			return ErrBridgeUnset
		}
		adjusted := t.c.Bridge.AdjustAmount(amount, t.c.BaseAsset.Decimals())
		if adjusted.Sign() <= 0 {
			return ErrInvalidAmount
		}
		minted, err := t.rates().QuoteDeposit(adjusted)
		if err != nil {
			return err
		}
		if minted.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if err := t.c.BaseAsset.TransferFrom(t.vault, caller, t.vault, adjusted); err != nil {
			return fmt.Errorf("vault: lock base asset: %w", err)
		}
		if err := t.c.Receipt.Mint(t.vault, t.vault, minted); err != nil {
			return fmt.Errorf("vault: mint receipt: %w", err)
		}
		if err := t.c.Receipt.Approve(t.vault, t.c.Bridge.Address(), minted); err != nil {
			return fmt.Errorf("vault: approve bridge: %w", err)
		}
		transfer, err := t.c.Bridge.Forward(t.vault, t.c.Receipt, remoteRecipient, minted, extraData)
		if err != nil {
			return fmt.Errorf("vault: forward receipt: %w", err)
		}
		receipt = DepositReceipt{
			Sender:          caller,
			Amount:          adjusted,
			ReceiptAmount:   minted,
			RemoteRecipient: remoteRecipient,
			Transfer:        transfer,
		}
		t.buf.Emit(events.TokenSupply{
			Token:   t.c.Receipt.Symbol(),
			Address: t.state.ReceiptToken,
			Total:   t.c.Receipt.TotalSupply(),
			Delta:   minted,
			Reason:  events.SupplyReasonMint,
		})
		t.emit(NewDepositedEvent(receipt))
		return nil
	})
	if err != nil {
		return DepositReceipt{}, err
	}
	return receipt, nil
}

// Withdraw burns receiptAmount from caller and releases the base asset it
// redeems for to recipient. callerVersion must equal the current version so a
// request signed before an upgrade cannot execute after it. Receipt supply
// refunded by the v3 upgrade is never redeemable: the burn may not take total
// supply below the refunded total.
func (v *Vault) Withdraw(caller common.Address, receiptAmount *big.Int, callerVersion uint64, recipient common.Address) (*big.Int, error) {
	var released *big.Int
	err := v.execute("withdraw", func(t *txn) error {
		if err := t.requireRunning(); err != nil {
			return err
		}
		if callerVersion != t.state.Version {
			return fmt.Errorf("%w: caller version %d, vault version %d", ErrStaleVersion, callerVersion, t.state.Version)
		}
		if receiptAmount == nil || receiptAmount.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if recipient == (common.Address{}) {
			recipient = caller
		}
		remaining := t.c.Receipt.TotalSupply()
		remaining.Sub(remaining, receiptAmount)
		if remaining.Sign() >= 0 && remaining.Cmp(t.state.TotalReceiptRefunded) < 0 {
			return fmt.Errorf("%w: supply after burn %s, refunded %s", ErrRefundedSupply, remaining, t.state.TotalReceiptRefunded)
		}
		amount, err := t.rates().QuoteWithdraw(receiptAmount)
		if err != nil {
			return err
		}
		if err := t.c.Receipt.Burn(t.vault, caller, receiptAmount); err != nil {
			return fmt.Errorf("vault: burn receipt: %w", err)
		}
		if err := t.c.BaseAsset.Transfer(t.vault, recipient, amount); err != nil {
			return fmt.Errorf("vault: release base asset: %w", err)
		}
		released = amount
		t.buf.Emit(events.TokenSupply{
			Token:   t.c.Receipt.Symbol(),
			Address: t.state.ReceiptToken,
			Total:   t.c.Receipt.TotalSupply(),
			Delta:   new(big.Int).Neg(receiptAmount),
			Reason:  events.SupplyReasonBurn,
		})
		t.emit(NewWithdrawnEvent(recipient, receiptAmount, amount))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// CollectRewards skims the yield accrued since the last collection, sells it
// through the rewards liquidator and forwards the proceeds to the remote
// distributor. A negligible or negative yield only re-anchors the baseline.
func (v *Vault) CollectRewards(caller common.Address) (RewardsReceipt, error) {
	var out RewardsReceipt
	err := v.execute("collect_rewards", func(t *txn) error {
		if err := t.requireRunning(); err != nil {
			return err
		}
		if err := CanCollect(t.state, caller, t.now); err != nil {
			return err
		}
		rates := t.rates()
		yield, err := rates.Yield()
		if err != nil {
			return err
		}
		burnt := rates.SharesBurnt()

		out = RewardsReceipt{BaseAmount: big.NewInt(0), TargetAmount: big.NewInt(0), CollectedAt: t.now}
		if yield.Cmp(NegligibleYield) > 0 {
			if t.c.Liquidator == nil {
				return ErrLiquidatorUnset
			}
			if t.c.Bridge == nil {
				return ErrBridgeUnset
			}
			if err := t.c.BaseAsset.Transfer(t.vault, t.c.Liquidator.Address(), yield); err != nil {
				return fmt.Errorf("vault: move yield to liquidator: %w", err)
			}
			proceeds, err := t.c.Liquidator.Liquidate(t.vault, t.vault)
			if err != nil {
				return fmt.Errorf("vault: liquidate rewards: %w", err)
			}
			target := t.c.Liquidator.TargetAsset()
			if err := target.Approve(t.vault, t.c.Bridge.Address(), proceeds); err != nil {
				return fmt.Errorf("vault: approve bridge: %w", err)
			}
			transfer, err := t.c.Bridge.Forward(t.vault, target, t.state.RemoteDistributor, proceeds, nil)
			if err != nil {
				return fmt.Errorf("vault: forward rewards: %w", err)
			}
			out.BaseAmount = yield
			out.TargetAmount = proceeds
			out.Transfer = &transfer
		}

		price, err := rates.SharePrice()
		if err != nil {
			return err
		}
		rates.RecordCollectionBaseline(price, burnt, t.now)
		t.emit(NewRewardsCollectedEvent(out.BaseAmount, out.TargetAmount))
		return nil
	})
	if err != nil {
		return RewardsReceipt{}, err
	}
	return out, nil
}
