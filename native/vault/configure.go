package vault

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Initialize binds the vault to its two assets and installs the admins. It
// may succeed only once. The vault starts stopped.
func (v *Vault) Initialize(params InitParams) error {
	return v.execute("initialize", func(t *txn) error {
		if t.state.Initialized() {
			return ErrAlreadyInitialized
		}
		if params.Admin == (common.Address{}) {
			return fmt.Errorf("%w: admin required", ErrInvalidConfig)
		}
		if params.Receipt == nil || params.BaseAsset == nil {
			return fmt.Errorf("%w: receipt and base asset required", ErrInvalidConfig)
		}
		t.c.Receipt = params.Receipt
		t.c.BaseAsset = params.BaseAsset
		t.state.ReceiptToken = params.Receipt.Address()
		t.state.BaseAsset = params.BaseAsset.Address()
		t.state.Admin = params.Admin
		t.state.EmergencyAdmin = params.EmergencyAdmin
		t.state.Version = LatestVersion
		t.state.OperationsAllowed = false

		price, err := t.rates().SharePrice()
		if err != nil {
			return err
		}
		t.rates().RecordCollectionBaseline(price, t.rates().SharesBurnt(), t.now)

		t.emit(NewInitializedEvent(t.state))
		t.emit(NewAdminChangedEvent(params.Admin))
		if params.EmergencyAdmin != (common.Address{}) {
			t.emit(NewEmergencyAdminChangedEvent(params.EmergencyAdmin))
		}
		return nil
	})
}

// ChangeAdmin hands the admin role to admin.
func (v *Vault) ChangeAdmin(caller, admin common.Address) error {
	return v.execute("change_admin", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.changeAdmin(admin)
	})
}

// SetEmergencyAdmin installs or, with the zero address, clears the emergency
// admin.
func (v *Vault) SetEmergencyAdmin(caller, admin common.Address) error {
	return v.execute("set_emergency_admin", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		t.setEmergencyAdmin(admin)
		return nil
	})
}

func (v *Vault) SetBridgeConnector(caller common.Address, bridge BridgeConnector) error {
	return v.execute("set_bridge_connector", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		t.setBridge(bridge)
		return nil
	})
}

func (v *Vault) SetRewardsLiquidator(caller common.Address, liquidator RewardsLiquidator) error {
	return v.execute("set_rewards_liquidator", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		t.setLiquidator(liquidator)
		return nil
	})
}

// SetInsuranceConnector swaps the insurance connector and anchors the
// burnt-shares baseline at the new connector's counter. It fails while burns
// reported by the current connector are still waiting for a collection.
func (v *Vault) SetInsuranceConnector(caller common.Address, insurance InsuranceConnector) error {
	return v.execute("set_insurance_connector", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.setInsurance(insurance)
	})
}

func (v *Vault) SetRemoteDistributor(caller common.Address, id common.Hash) error {
	return v.execute("set_remote_distributor", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		t.setRemoteDistributor(id)
		return nil
	})
}

// SetLiquidationConfig updates the liquidations admin and the collection
// window.
func (v *Vault) SetLiquidationConfig(caller, liquidationsAdmin common.Address, noInterval, restricted time.Duration) error {
	return v.execute("set_liquidation_config", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.setLiquidationConfig(liquidationsAdmin, noInterval, restricted)
	})
}

// Configure replaces every collaborator reference and timing parameter as one
// unit.
func (v *Vault) Configure(caller common.Address, cfg Configuration) error {
	return v.execute("configure", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.configure(cfg)
	})
}

// ConfigureAndHandOver applies cfg and hands the admin role to admin in a
// single operation. Migrations use it so the collaborators and the admin
// change together or not at all.
func (v *Vault) ConfigureAndHandOver(caller common.Address, cfg Configuration, admin common.Address) error {
	return v.execute("configure_and_hand_over", func(t *txn) error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if err := t.configure(cfg); err != nil {
			return err
		}
		return t.changeAdmin(admin)
	})
}

func (t *txn) configure(cfg Configuration) error {
	t.setBridge(cfg.Bridge)
	t.setLiquidator(cfg.Liquidator)
	if err := t.setInsurance(cfg.Insurance); err != nil {
		return err
	}
	if err := t.setLiquidationConfig(cfg.LiquidationsAdmin, cfg.NoLiquidationInterval, cfg.RestrictedLiquidationInterval); err != nil {
		return err
	}
	t.setRemoteDistributor(cfg.RemoteDistributor)
	return nil
}

func (t *txn) changeAdmin(admin common.Address) error {
	if admin == (common.Address{}) {
		return fmt.Errorf("%w: admin required", ErrInvalidConfig)
	}
	t.state.Admin = admin
	t.emit(NewAdminChangedEvent(admin))
	return nil
}

func (t *txn) setEmergencyAdmin(admin common.Address) {
	t.state.EmergencyAdmin = admin
	t.emit(NewEmergencyAdminChangedEvent(admin))
}

func (t *txn) setBridge(bridge BridgeConnector) {
	t.c.Bridge = bridge
	t.state.BridgeConnector = bridgeAddress(bridge)
	t.emit(NewBridgeConnectorUpdatedEvent(t.state.BridgeConnector))
}

func (t *txn) setLiquidator(liquidator RewardsLiquidator) {
	t.c.Liquidator = liquidator
	t.state.RewardsLiquidator = liquidatorAddress(liquidator)
	t.emit(NewRewardsLiquidatorUpdatedEvent(t.state.RewardsLiquidator))
}

// setInsurance leaves the burnt-shares baseline alone when the connector is
// re-submitted. A different connector is anchored at its own counter, which
// is only allowed once a collection has absorbed every burn the outgoing
// connector reported; otherwise those burns would surface as yield.
func (t *txn) setInsurance(insurance InsuranceConnector) error {
	next := insuranceAddress(insurance)
	if next != t.state.InsuranceConnector {
		pending := new(big.Int).Sub(t.rates().SharesBurnt(), cloneBig(t.state.LastLiquidationSharesBurnt))
		if pending.Sign() > 0 {
			return fmt.Errorf("%w: %s burnt shares not yet collected", ErrInsurancePending, pending)
		}
		if insurance != nil {
			t.state.LastLiquidationSharesBurnt = cloneBig(insurance.TotalSharesBurnt())
		}
	}
	t.c.Insurance = insurance
	t.state.InsuranceConnector = next
	t.emit(NewInsuranceConnectorUpdatedEvent(next))
	return nil
}

func (t *txn) setRemoteDistributor(id common.Hash) {
	t.state.RemoteDistributor = id
	t.emit(NewRemoteDistributorUpdatedEvent(id))
}

func (t *txn) setLiquidationConfig(admin common.Address, noInterval, restricted time.Duration) error {
	if noInterval < 0 || restricted < noInterval {
		return fmt.Errorf("%w: restricted interval %s below no-liquidation interval %s", ErrInvalidConfig, restricted, noInterval)
	}
	t.state.LiquidationsAdmin = admin
	t.state.NoLiquidationInterval = noInterval
	t.state.RestrictedLiquidationInterval = restricted
	t.emit(NewLiquidationConfigUpdatedEvent(admin, noInterval, restricted))
	return nil
}
