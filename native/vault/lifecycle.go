package vault

import (
	"github.com/ethereum/go-ethereum/common"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

// EmergencyStop halts deposits, withdrawals and collections. The admin or the
// emergency admin may call it while the vault is running.
func (v *Vault) EmergencyStop(caller common.Address) error {
	return v.execute("emergency_stop", func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		if !nativecommon.HasRole(caller, t.state.Admin, t.state.EmergencyAdmin) {
			return ErrUnauthorized
		}
		if !t.state.OperationsAllowed {
			return ErrAlreadyStopped
		}
		t.state.OperationsAllowed = false
		t.emit(NewOperationsStoppedEvent(caller))
		return nil
	})
}

// Resume re-enables operations. Only the admin may call it.
func (v *Vault) Resume(caller common.Address) error {
	return v.execute("resume", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if t.state.OperationsAllowed {
			return ErrAlreadyRunning
		}
		t.state.OperationsAllowed = true
		t.emit(NewOperationsResumedEvent(caller))
		return nil
	})
}
