package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/native/bridge"
)

// LatestVersion is the version a freshly initialized vault starts at.
const LatestVersion uint64 = 4

// NegligibleYield is the largest yield, in base-asset units, that is treated
// as no yield at all. Collections at or below it skip liquidation.
var NegligibleYield = big.NewInt(100)

// State is the persistent vault record. It survives upgrades unchanged except
// for the fields a finalize routine migrates explicitly.
type State struct {
	Admin             common.Address
	EmergencyAdmin    common.Address
	LiquidationsAdmin common.Address

	ReceiptToken       common.Address
	BaseAsset          common.Address
	BridgeConnector    common.Address
	RewardsLiquidator  common.Address
	InsuranceConnector common.Address
	RemoteDistributor  common.Hash

	NoLiquidationInterval         time.Duration
	RestrictedLiquidationInterval time.Duration

	LastLiquidationTime        time.Time
	LastLiquidationSharePrice  *big.Int
	LastLiquidationSharesBurnt *big.Int

	OperationsAllowed    bool
	Version              uint64
	TotalReceiptRefunded *big.Int
}

// Initialized reports whether the vault has been initialized. An initialized
// vault always has an admin.
func (s *State) Initialized() bool {
	return s != nil && s.Admin != (common.Address{})
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	clone.LastLiquidationSharePrice = cloneBig(s.LastLiquidationSharePrice)
	clone.LastLiquidationSharesBurnt = cloneBig(s.LastLiquidationSharesBurnt)
	clone.TotalReceiptRefunded = cloneBig(s.TotalReceiptRefunded)
	return &clone
}

func (s *State) ensureDefaults() {
	if s.LastLiquidationSharePrice == nil {
		s.LastLiquidationSharePrice = big.NewInt(0)
	}
	if s.LastLiquidationSharesBurnt == nil {
		s.LastLiquidationSharesBurnt = big.NewInt(0)
	}
	if s.TotalReceiptRefunded == nil {
		s.TotalReceiptRefunded = big.NewInt(0)
	}
}

// InitParams carries the one-time initialization arguments.
type InitParams struct {
	Receipt        ReceiptIssuer
	BaseAsset      BaseAsset
	Admin          common.Address
	EmergencyAdmin common.Address
}

// Configuration replaces every collaborator reference and timing parameter in
// one unit. Nil handles clear the corresponding reference.
type Configuration struct {
	Bridge                        BridgeConnector
	Liquidator                    RewardsLiquidator
	Insurance                     InsuranceConnector
	LiquidationsAdmin             common.Address
	NoLiquidationInterval         time.Duration
	RestrictedLiquidationInterval time.Duration
	RemoteDistributor             common.Hash
}

// UpgradeV3Params carries the one-time migration inputs of the v3 finalize
// routine.
type UpgradeV3Params struct {
	EmergencyAdmin common.Address
	// RefundedReceipt is receipt supply that stays outstanding but is no
	// longer backed by custodied base asset.
	RefundedReceipt *big.Int
	// RefundRecipient receives the base asset backing RefundedReceipt. The
	// zero address means the refund was settled outside the vault.
	RefundRecipient common.Address
}

// DepositReceipt describes a committed deposit.
type DepositReceipt struct {
	Sender          common.Address
	Amount          *big.Int
	ReceiptAmount   *big.Int
	RemoteRecipient common.Hash
	Transfer        bridge.Transfer
}

// RewardsReceipt describes a committed reward collection. A zero BaseAmount
// means no liquidation took place.
type RewardsReceipt struct {
	BaseAmount   *big.Int
	TargetAmount *big.Int
	Transfer     *bridge.Transfer
	CollectedAt  time.Time
}
