package vault

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

func TestInitializeOnce(t *testing.T) {
	h := newHarness(t)
	err := h.vault.Initialize(InitParams{Receipt: h.receipt, BaseAsset: h.steth, Admin: strangerAddr})
	if !errors.Is(err, nativecommon.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	if h.vault.Admin() != adminAddr {
		t.Fatalf("second initialize replaced the admin")
	}
}

func TestInitializeValidatesParams(t *testing.T) {
	ledger := token.NewLedger()
	steth := token.NewRebasing(ledger, common.HexToAddress("0x6000"), "stETH", oracleAddr)
	receipt := token.NewToken(ledger, common.HexToAddress("0x6001"), "bETH", 18, adminAddr)
	v := New(vaultAddr, ledger)

	if err := v.Initialize(InitParams{Receipt: receipt, BaseAsset: steth}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config without admin, got %v", err)
	}
	if err := v.Initialize(InitParams{BaseAsset: steth, Admin: adminAddr}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config without receipt, got %v", err)
	}
	if v.State().Initialized() {
		t.Fatalf("failed initialize left the vault initialized")
	}
	if _, err := v.CurrentRate(); !errors.Is(err, nativecommon.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := v.Resume(adminAddr); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}

	if err := v.Initialize(InitParams{Receipt: receipt, BaseAsset: steth, Admin: adminAddr}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	state := v.State()
	if state.Version != LatestVersion || state.OperationsAllowed {
		t.Fatalf("fresh vault must be at the latest version and stopped: %+v", state)
	}
	if state.LastLiquidationSharePrice.Cmp(SharePricePrecision) != 0 {
		t.Fatalf("baseline should anchor to the empty pool price, got %s", state.LastLiquidationSharePrice)
	}
	if _, err := v.Deposit(aliceAddr, ether(1), remoteAlice, nil); !errors.Is(err, nativecommon.ErrContractStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
}

func TestEmergencyStopAndResume(t *testing.T) {
	h := newHarness(t)

	if err := h.vault.EmergencyStop(strangerAddr); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := h.vault.EmergencyStop(emergencyAddr); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}
	if err := h.vault.EmergencyStop(adminAddr); !errors.Is(err, ErrAlreadyStopped) {
		t.Fatalf("expected already stopped, got %v", err)
	}
	if h.vault.CanDepositOrWithdraw() {
		t.Fatalf("stopped vault accepts operations")
	}
	_ = h.steth.Approve(aliceAddr, vaultAddr, ether(1))
	if _, err := h.vault.Deposit(aliceAddr, ether(1), remoteAlice, nil); !errors.Is(err, ErrContractStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
	if _, err := h.vault.Withdraw(aliceAddr, ether(1), LatestVersion, common.Address{}); !errors.Is(err, ErrContractStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
	if _, err := h.vault.CollectRewards(keeperAddr); !errors.Is(err, ErrContractStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}

	if err := h.vault.Resume(emergencyAddr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("only the admin may resume, got %v", err)
	}
	if err := h.vault.Resume(adminAddr); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := h.vault.Resume(adminAddr); !errors.Is(err, nativecommon.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(h.events.OfType(EventTypeOperationsStopped)) != 1 || len(h.events.OfType(EventTypeOperationsResumed)) != 1 {
		t.Fatalf("unexpected lifecycle events %+v", h.events.Events())
	}
	h.deposit(aliceAddr, ether(1))
}

func TestClearedEmergencyAdminCannotStop(t *testing.T) {
	h := newHarness(t)
	if err := h.vault.SetEmergencyAdmin(adminAddr, common.Address{}); err != nil {
		t.Fatalf("clear emergency admin: %v", err)
	}
	if err := h.vault.EmergencyStop(emergencyAddr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cleared emergency admin kept its power, got %v", err)
	}
	if err := h.vault.EmergencyStop(common.Address{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("the zero address must never match a cleared role, got %v", err)
	}
	if err := h.vault.EmergencyStop(adminAddr); err != nil {
		t.Fatalf("admin stop: %v", err)
	}
}
