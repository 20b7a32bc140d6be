package vault

import (
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
)

const (
	EventTypeInitialized               = "vault.initialized"
	EventTypeDeposited                 = "vault.deposited"
	EventTypeWithdrawn                 = "vault.withdrawn"
	EventTypeRewardsCollected          = "vault.rewards_collected"
	EventTypeAdminChanged              = "vault.admin_changed"
	EventTypeEmergencyAdminChanged     = "vault.emergency_admin_changed"
	EventTypeBridgeConnectorUpdated    = "vault.bridge_connector_updated"
	EventTypeRewardsLiquidatorUpdated  = "vault.rewards_liquidator_updated"
	EventTypeInsuranceConnectorUpdated = "vault.insurance_connector_updated"
	EventTypeLiquidationConfigUpdated  = "vault.liquidation_config_updated"
	EventTypeRemoteDistributorUpdated  = "vault.remote_distributor_updated"
	EventTypeOperationsStopped         = "vault.operations_stopped"
	EventTypeOperationsResumed         = "vault.operations_resumed"
	EventTypeVersionIncremented        = "vault.version_incremented"
	EventTypeReceiptRefunded           = "vault.receipt_refunded"
)

type vaultEvent struct {
	evt *types.Event
}

func (e vaultEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e vaultEvent) Event() *types.Event { return e.evt }

// NewInitializedEvent returns the payload emitted once a vault is initialized.
func NewInitializedEvent(s *State) *types.Event {
	return &types.Event{Type: EventTypeInitialized, Attributes: map[string]string{
		"admin":          events.Address(s.Admin),
		"emergencyAdmin": events.Address(s.EmergencyAdmin),
		"receiptToken":   events.Address(s.ReceiptToken),
		"baseAsset":      events.Address(s.BaseAsset),
		"version":        strconv.FormatUint(s.Version, 10),
	}}
}

// NewDepositedEvent returns the payload for a committed deposit.
func NewDepositedEvent(r DepositReceipt) *types.Event {
	return &types.Event{Type: EventTypeDeposited, Attributes: map[string]string{
		"sender":          events.Address(r.Sender),
		"amount":          events.Amount(r.Amount),
		"remoteRecipient": r.RemoteRecipient.Hex(),
		"receiptAmount":   events.Amount(r.ReceiptAmount),
	}}
}

// NewWithdrawnEvent returns the payload for a committed withdrawal.
func NewWithdrawnEvent(recipient common.Address, receiptAmount, baseAmount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeWithdrawn, Attributes: map[string]string{
		"recipient":     events.Address(recipient),
		"receiptAmount": events.Amount(receiptAmount),
		"baseAmount":    events.Amount(baseAmount),
	}}
}

// NewRewardsCollectedEvent returns the payload for a collection. Zero amounts
// mark a collection that only re-anchored the baseline.
func NewRewardsCollectedEvent(baseAmount, targetAmount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeRewardsCollected, Attributes: map[string]string{
		"baseAmount":   events.Amount(baseAmount),
		"targetAmount": events.Amount(targetAmount),
	}}
}

func newAddressEvent(eventType, key string, addr common.Address) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{key: events.Address(addr)}}
}

// NewAdminChangedEvent returns the payload emitted when the admin changes.
func NewAdminChangedEvent(admin common.Address) *types.Event {
	return newAddressEvent(EventTypeAdminChanged, "newAdmin", admin)
}

func NewEmergencyAdminChangedEvent(admin common.Address) *types.Event {
	return newAddressEvent(EventTypeEmergencyAdminChanged, "newEmergencyAdmin", admin)
}

func NewBridgeConnectorUpdatedEvent(addr common.Address) *types.Event {
	return newAddressEvent(EventTypeBridgeConnectorUpdated, "bridgeConnector", addr)
}

func NewRewardsLiquidatorUpdatedEvent(addr common.Address) *types.Event {
	return newAddressEvent(EventTypeRewardsLiquidatorUpdated, "rewardsLiquidator", addr)
}

func NewInsuranceConnectorUpdatedEvent(addr common.Address) *types.Event {
	return newAddressEvent(EventTypeInsuranceConnectorUpdated, "insuranceConnector", addr)
}

// NewLiquidationConfigUpdatedEvent returns the payload for a timing or
// liquidations admin change. Intervals are rendered in whole seconds.
func NewLiquidationConfigUpdatedEvent(admin common.Address, noInterval, restricted time.Duration) *types.Event {
	return &types.Event{Type: EventTypeLiquidationConfigUpdated, Attributes: map[string]string{
		"liquidationsAdmin":             events.Address(admin),
		"noLiquidationInterval":         strconv.FormatInt(int64(noInterval/time.Second), 10),
		"restrictedLiquidationInterval": strconv.FormatInt(int64(restricted/time.Second), 10),
	}}
}

func NewRemoteDistributorUpdatedEvent(id common.Hash) *types.Event {
	return &types.Event{Type: EventTypeRemoteDistributorUpdated, Attributes: map[string]string{
		"remoteDistributor": id.Hex(),
	}}
}

func NewOperationsStoppedEvent(caller common.Address) *types.Event {
	return newAddressEvent(EventTypeOperationsStopped, "caller", caller)
}

func NewOperationsResumedEvent(caller common.Address) *types.Event {
	return newAddressEvent(EventTypeOperationsResumed, "caller", caller)
}

// NewVersionIncrementedEvent returns the payload emitted on every version bump.
func NewVersionIncrementedEvent(version uint64) *types.Event {
	return &types.Event{Type: EventTypeVersionIncremented, Attributes: map[string]string{
		"newVersion": strconv.FormatUint(version, 10),
	}}
}

// NewReceiptRefundedEvent returns the payload for the one-time refund
// correction.
func NewReceiptRefundedEvent(receiptAmount, baseAmount *big.Int, recipient common.Address) *types.Event {
	attrs := map[string]string{
		"receiptAmount": events.Amount(receiptAmount),
		"baseAmount":    events.Amount(baseAmount),
	}
	if recipient != (common.Address{}) {
		attrs["recipient"] = events.Address(recipient)
	}
	return &types.Event{Type: EventTypeReceiptRefunded, Attributes: attrs}
}
