package devnet

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/anchor-collateral-steth/config"
	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/native/liquidator"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000d0001")
	keeper = common.HexToAddress("0x00000000000000000000000000000000000d0002")
	holder = common.HexToAddress("0x00000000000000000000000000000000000d0003")
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func settings() config.Resolved {
	return config.Resolved{
		Admin:                         admin,
		LiquidationsAdmin:             keeper,
		NoLiquidationInterval:         time.Hour,
		RestrictedLiquidationInterval: 2 * time.Hour,
		RemoteDistributor:             common.HexToHash("0xd157"),
		Tolerances:                    []*big.Int{liquidator.Percent(5), liquidator.Percent(5), liquidator.Percent(5)},
		ReferenceMaxAge:               2 * time.Hour,
	}
}

func newDevnet(t *testing.T) (*Devnet, *clock, *events.Recorder) {
	t.Helper()
	clk := &clock{now: time.Unix(1_700_000_000, 0).UTC()}
	rec := &events.Recorder{}
	d, err := New(Options{Settings: settings(), Emitter: rec, Now: clk.Now})
	require.NoError(t, err)
	return d, clk, rec
}

func TestNewDeploysRunningVault(t *testing.T) {
	d, _, _ := newDevnet(t)
	state := d.State()
	require.True(t, state.OperationsAllowed)
	require.Equal(t, vault.LatestVersion, state.Version)
	require.Equal(t, LiquidatorAddress, state.RewardsLiquidator)
	require.True(t, d.CanDepositOrWithdraw())

	rate, err := d.CurrentRate()
	require.NoError(t, err)
	require.Zero(t, rate.Cmp(vault.Scale))
}

func TestNewRequiresAdmin(t *testing.T) {
	s := settings()
	s.Admin = common.Address{}
	_, err := New(Options{Settings: s})
	require.Error(t, err)
}

func TestNewRejectsMismatchedTolerances(t *testing.T) {
	s := settings()
	s.Tolerances = s.Tolerances[:2]
	_, err := New(Options{Settings: s})
	require.ErrorIs(t, err, liquidator.ErrInvalidConfig)
}

func TestRebaseAndCollect(t *testing.T) {
	d, clk, rec := newDevnet(t)
	amount := new(big.Int).Mul(big.NewInt(100), ether)
	require.NoError(t, d.Fund(holder, amount))
	_, err := d.Deposit(holder, amount, common.HexToHash("0xa11ce"))
	require.NoError(t, err)

	require.NoError(t, d.Rebase(101, 100))
	require.False(t, d.CanDepositOrWithdraw())

	yield, err := d.PendingYield()
	require.NoError(t, err)
	require.Positive(t, yield.Sign())

	require.True(t, errors.Is(d.CanCollect(keeper), vault.ErrTooSoon))
	clk.now = clk.now.Add(90 * time.Minute)
	require.ErrorIs(t, d.CanCollect(holder), vault.ErrUnauthorized)
	require.NoError(t, d.CanCollect(keeper))

	receipt, err := d.CollectRewards(keeper)
	require.NoError(t, err)
	require.Zero(t, receipt.BaseAmount.Cmp(yield))
	require.Positive(t, receipt.TargetAmount.Sign())
	require.NotNil(t, receipt.Transfer)
	require.True(t, d.CanDepositOrWithdraw())
	require.Len(t, rec.OfType(liquidator.EventTypeSold), 1)

	snap := d.Snapshot()
	require.True(t, snap.OperationsAllowed)
	require.Zero(t, snap.Custody.Cmp(d.StETH.BalanceOf(VaultAddress)))
	require.Equal(t, clk.now, snap.LastCollection)
}

func TestStaleReferenceBlocksCollection(t *testing.T) {
	d, clk, _ := newDevnet(t)
	amount := new(big.Int).Mul(big.NewInt(100), ether)
	require.NoError(t, d.Fund(holder, amount))
	_, err := d.Deposit(holder, amount, common.HexToHash("0xa11ce"))
	require.NoError(t, err)
	require.NoError(t, d.Rebase(101, 100))

	clk.now = clk.now.Add(3 * time.Hour)
	_, err = d.CollectRewards(holder)
	require.ErrorIs(t, err, liquidator.ErrStaleReference)

	require.NoError(t, d.SetReferencePrice("0.999"))
	_, err = d.CollectRewards(holder)
	require.NoError(t, err)
}

func TestRejectedDepositLeavesNoAllowance(t *testing.T) {
	d, _, _ := newDevnet(t)
	amount := new(big.Int).Mul(big.NewInt(10), ether)
	require.NoError(t, d.Fund(holder, amount))
	require.NoError(t, d.Rebase(101, 100))

	_, err := d.Deposit(holder, amount, common.HexToHash("0xa11ce"))
	require.ErrorIs(t, err, vault.ErrOperationsNotPermitted)
	require.Zero(t, d.StETH.Allowance(holder, VaultAddress).Sign())
	require.Zero(t, d.StETH.BalanceOf(VaultAddress).Sign())
}
