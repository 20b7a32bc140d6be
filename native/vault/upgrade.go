package vault

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func (t *txn) requireVersion(expected uint64) error {
	if t.state.Version != expected {
		return fmt.Errorf("%w: have %d, want %d", ErrUnexpectedVersion, t.state.Version, expected)
	}
	return nil
}

func (t *txn) bumpVersion() error {
	if t.state.Version == math.MaxUint64 {
		return ErrArithmetic
	}
	t.state.Version++
	t.emit(NewVersionIncrementedEvent(t.state.Version))
	return nil
}

// FinalizeUpgradeV3 migrates a version 2 record. It installs the emergency
// admin and excludes receipt supply refunded outside the vault from the rate
// denominator, releasing the base asset that backed it.
func (v *Vault) FinalizeUpgradeV3(caller common.Address, params UpgradeV3Params) error {
	return v.execute("finalize_upgrade_v3", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if err := t.requireVersion(2); err != nil {
			return err
		}
		refunded := cloneBig(params.RefundedReceipt)
		if refunded.Sign() < 0 {
			return fmt.Errorf("%w: negative refund", ErrInvalidConfig)
		}
		if refunded.Sign() > 0 {
			total := new(big.Int).Add(t.state.TotalReceiptRefunded, refunded)
			if total.Cmp(t.c.Receipt.TotalSupply()) > 0 {
				return fmt.Errorf("%w: refund %s exceeds receipt supply", ErrInvalidConfig, total)
			}
			released := big.NewInt(0)
			if params.RefundRecipient != (common.Address{}) {
				rate, err := t.rates().CurrentRate()
				if err != nil {
					return err
				}
				released, err = mulDiv(refunded, rate, Scale)
				if err != nil {
					return err
				}
				if err := t.c.BaseAsset.Transfer(t.vault, params.RefundRecipient, released); err != nil {
					return fmt.Errorf("vault: release refund: %w", err)
				}
			}
			t.state.TotalReceiptRefunded = total
			t.emit(NewReceiptRefundedEvent(refunded, released, params.RefundRecipient))
		}
		t.setEmergencyAdmin(params.EmergencyAdmin)
		return t.bumpVersion()
	})
}

// FinalizeUpgradeV4 migrates a version 3 record. The emergency admin role is
// retired; the admin alone can stop the vault afterwards.
func (v *Vault) FinalizeUpgradeV4(caller common.Address) error {
	return v.execute("finalize_upgrade_v4", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if err := t.requireVersion(3); err != nil {
			return err
		}
		t.setEmergencyAdmin(common.Address{})
		return t.bumpVersion()
	})
}

// BumpVersion increments the version without migrating any field. Admins use
// it to invalidate in-flight withdrawals when redemption semantics change.
func (v *Vault) BumpVersion(caller common.Address) error {
	return v.execute("bump_version", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.bumpVersion()
	})
}
