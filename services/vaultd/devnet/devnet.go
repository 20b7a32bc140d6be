// Package devnet assembles an in-process deployment of the vault and its
// collaborators: a rebasing base asset, the receipt token, a bridge, an
// insurance connector and a three-hop liquidator with seeded pools.
package devnet

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/config"
	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/native/bridge"
	"github.com/lidofinance/anchor-collateral-steth/native/insurance"
	"github.com/lidofinance/anchor-collateral-steth/native/liquidator"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
	"github.com/lidofinance/anchor-collateral-steth/observability/metrics"
)

// Fixed devnet addresses.
var (
	VaultAddress      = common.HexToAddress("0x000000000000000000000000000000000000a001")
	BridgeAddress     = common.HexToAddress("0x000000000000000000000000000000000000a002")
	InsuranceAddress  = common.HexToAddress("0x000000000000000000000000000000000000a003")
	LiquidatorAddress = common.HexToAddress("0x000000000000000000000000000000000000a004")
	OracleAddress     = common.HexToAddress("0x000000000000000000000000000000000000a005")
	DeployerAddress   = common.HexToAddress("0x000000000000000000000000000000000000a006")
	FaucetAddress     = common.HexToAddress("0x000000000000000000000000000000000000a007")

	StETHAddress = common.HexToAddress("0x000000000000000000000000000000000000b001")
	BETHAddress  = common.HexToAddress("0x000000000000000000000000000000000000b002")
	WETHAddress  = common.HexToAddress("0x000000000000000000000000000000000000b003")
	USDCAddress  = common.HexToAddress("0x000000000000000000000000000000000000b004")
	USTAddress   = common.HexToAddress("0x000000000000000000000000000000000000b005")
)

var (
	ether = big.NewInt(1_000_000_000_000_000_000)
	micro = big.NewInt(1_000_000)
)

func units(n int64, unit *big.Int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

// Options configures New.
type Options struct {
	Settings config.Resolved
	Emitter  events.Emitter
	Store    vault.StateStore
	Logger   *slog.Logger
	Now      func() time.Time
}

// Devnet is a fully wired deployment. Its methods serialise every call the
// way a chain orders transactions; callers must not touch the exported
// handles directly while the devnet is shared.
type Devnet struct {
	mu sync.Mutex

	Ledger     *token.Ledger
	StETH      *token.Rebasing
	Receipt    *token.Token
	WETH       *token.Token
	USDC       *token.Token
	UST        *token.Token
	Bridge     *bridge.Connector
	Insurance  *insurance.Connector
	Liquidator *liquidator.Liquidator
	// Reference is the operator-maintained stETH/WETH price.
	Reference *liquidator.ManualReference
	Vault     *vault.Vault

	now func() time.Time
}

// New deploys the devnet, initializes and configures the vault with the
// resolved settings, and resumes operations.
func New(opts Options) (*Devnet, error) {
	settings := opts.Settings
	if settings.Admin == (common.Address{}) {
		return nil, fmt.Errorf("devnet: admin required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Devnet{Ledger: token.NewLedger(), now: now}
	d.StETH = token.NewRebasing(d.Ledger, StETHAddress, "stETH", OracleAddress)
	d.Receipt = token.NewToken(d.Ledger, BETHAddress, "bETH", 18, DeployerAddress)
	d.WETH = token.NewToken(d.Ledger, WETHAddress, "WETH", 18, DeployerAddress)
	d.USDC = token.NewToken(d.Ledger, USDCAddress, "USDC", 6, DeployerAddress)
	d.UST = token.NewToken(d.Ledger, USTAddress, "UST", 18, DeployerAddress)
	if err := d.Receipt.SetMinter(DeployerAddress, VaultAddress); err != nil {
		return nil, fmt.Errorf("devnet: receipt minter: %w", err)
	}
	d.Bridge = bridge.NewConnector(d.Ledger, BridgeAddress)
	d.Insurance = insurance.NewConnector(d.Ledger, InsuranceAddress, settings.Admin, d.StETH)
	if err := d.StETH.SetBurner(OracleAddress, InsuranceAddress); err != nil {
		return nil, fmt.Errorf("devnet: share burner: %w", err)
	}

	liq, err := d.deployLiquidator(settings, emitter)
	if err != nil {
		return nil, err
	}
	d.Liquidator = liq
	if _, err := d.StETH.Submit(FaucetAddress, units(1_000_000, ether)); err != nil {
		return nil, fmt.Errorf("devnet: faucet: %w", err)
	}

	v := vault.New(VaultAddress, d.Ledger)
	v.SetNowFunc(now)
	v.SetLogger(logger)
	v.SetEmitter(emitter)
	if opts.Store != nil {
		v.SetStore(opts.Store)
	}
	if err := v.Initialize(vault.InitParams{
		Receipt:        d.Receipt,
		BaseAsset:      d.StETH,
		Admin:          settings.Admin,
		EmergencyAdmin: settings.EmergencyAdmin,
	}); err != nil {
		return nil, fmt.Errorf("devnet: initialize vault: %w", err)
	}
	if err := v.Configure(settings.Admin, vault.Configuration{
		Bridge:                        d.Bridge,
		Liquidator:                    d.Liquidator,
		Insurance:                     d.Insurance,
		LiquidationsAdmin:             settings.LiquidationsAdmin,
		NoLiquidationInterval:         settings.NoLiquidationInterval,
		RestrictedLiquidationInterval: settings.RestrictedLiquidationInterval,
		RemoteDistributor:             settings.RemoteDistributor,
	}); err != nil {
		return nil, fmt.Errorf("devnet: configure vault: %w", err)
	}
	if err := v.Resume(settings.Admin); err != nil {
		return nil, fmt.Errorf("devnet: resume vault: %w", err)
	}
	d.Vault = v
	return d, nil
}

func (d *Devnet) deployLiquidator(settings config.Resolved, emitter events.Emitter) (*liquidator.Liquidator, error) {
	pool := func(name string, addr string, in, out token.Asset, feeBps int64) (*liquidator.Pool, error) {
		return liquidator.NewPool(name, common.HexToAddress(addr), in, out, feeBps)
	}
	stethWeth, err := pool("curve-steth-weth", "0xc001", d.StETH, d.WETH, 4)
	if err != nil {
		return nil, err
	}
	wethUsdc, err := pool("uniswap-weth-usdc", "0xc002", d.WETH, d.USDC, 30)
	if err != nil {
		return nil, err
	}
	wethUsdcRef, err := pool("sushiswap-weth-usdc", "0xc003", d.WETH, d.USDC, 30)
	if err != nil {
		return nil, err
	}
	usdcUst, err := pool("curve-usdc-ust", "0xc004", d.USDC, d.UST, 4)
	if err != nil {
		return nil, err
	}

	if _, err := d.StETH.Submit(stethWeth.Address(), units(50_000, ether)); err != nil {
		return nil, fmt.Errorf("devnet: seed %s: %w", stethWeth.Name(), err)
	}
	d.WETH.Credit(stethWeth.Address(), units(50_000, ether))
	d.WETH.Credit(wethUsdc.Address(), units(10_000, ether))
	d.USDC.Credit(wethUsdc.Address(), units(20_000_000, micro))
	d.WETH.Credit(wethUsdcRef.Address(), units(20_000, ether))
	d.USDC.Credit(wethUsdcRef.Address(), units(40_000_000, micro))
	d.USDC.Credit(usdcUst.Address(), units(50_000_000, micro))
	d.UST.Credit(usdcUst.Address(), units(50_000_000, ether))

	d.Reference = liquidator.NewManualReference(settings.ReferenceMaxAge)
	d.Reference.SetNowFunc(d.now)
	d.Reference.Set(new(big.Int).Set(liquidator.PriceScale), d.now())
	// One USDC unit (1e-6) buys 1e12 UST units at parity.
	stable := liquidator.NewManualReference(0)
	if err := stable.SetDecimal("1000000000000", d.now()); err != nil {
		return nil, fmt.Errorf("devnet: stable reference: %w", err)
	}

	liq, err := liquidator.New(d.Ledger, LiquidatorAddress, settings.Admin, VaultAddress, []liquidator.Hop{
		{Venue: stethWeth, Reference: d.Reference},
		{Venue: wethUsdc, Reference: liquidator.SpotReference{Pool: wethUsdcRef}},
		{Venue: usdcUst, Reference: stable},
	}, settings.Tolerances, liquidator.WithEmitter(emitter))
	if err != nil {
		return nil, fmt.Errorf("devnet: liquidator: %w", err)
	}
	return liq, nil
}

// Fund gives holder amount of base asset from the faucet.
func (d *Devnet) Fund(holder common.Address, amount *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.StETH.Transfer(FaucetAddress, holder, amount)
}

// Rebase applies an oracle report scaling the pooled base asset by
// numerator/denominator.
func (d *Devnet) Rebase(numerator, denominator int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.StETH.Rebase(OracleAddress, numerator, denominator)
}

// SetReferencePrice updates the stETH/WETH reference price, given as a
// decimal such as "0.9985", and marks it fresh.
func (d *Devnet) SetReferencePrice(price string) error {
	return d.Reference.SetDecimal(price, d.now())
}

// Deposit approves and deposits amount on behalf of holder. A rejected deposit
// also withdraws the approval.
func (d *Devnet) Deposit(holder common.Address, amount *big.Int, remoteRecipient common.Hash) (vault.DepositReceipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := d.Ledger.Snapshot()
	if err := d.StETH.Approve(holder, VaultAddress, amount); err != nil {
		return vault.DepositReceipt{}, err
	}
	receipt, err := d.Vault.Deposit(holder, amount, remoteRecipient, nil)
	if err != nil {
		d.Ledger.RevertToSnapshot(snapshot)
		return vault.DepositReceipt{}, err
	}
	return receipt, nil
}

// Withdraw redeems receiptAmount held by holder at the current version.
func (d *Devnet) Withdraw(holder common.Address, receiptAmount *big.Int, recipient common.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.Withdraw(holder, receiptAmount, d.Vault.Version(), recipient)
}

// CollectRewards runs a collection as caller.
func (d *Devnet) CollectRewards(caller common.Address) (vault.RewardsReceipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.CollectRewards(caller)
}

func (d *Devnet) CanCollect(caller common.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.CanCollect(caller)
}

func (d *Devnet) State() *vault.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.State()
}

func (d *Devnet) CurrentRate() (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.CurrentRate()
}

func (d *Devnet) PendingYield() (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.PendingYield()
}

func (d *Devnet) CanDepositOrWithdraw() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.CanDepositOrWithdraw()
}

func (d *Devnet) QuoteDeposit(amount *big.Int) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.QuoteDeposit(amount)
}

func (d *Devnet) QuoteWithdraw(receiptAmount *big.Int) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Vault.QuoteWithdraw(receiptAmount)
}

// Snapshot returns the metrics view of the vault.
func (d *Devnet) Snapshot() metrics.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.Vault.State()
	snap := metrics.Snapshot{
		RateScale:         vault.Scale,
		SharePrice:        d.StETH.SharePrice(),
		SharePriceScale:   token.SharePricePrecision,
		Custody:           d.StETH.BalanceOf(VaultAddress),
		ReceiptSupply:     d.Receipt.TotalSupply(),
		Decimals:          d.StETH.Decimals(),
		OperationsAllowed: state.OperationsAllowed,
		Version:           state.Version,
		LastCollection:    state.LastLiquidationTime,
	}
	if rate, err := d.Vault.CurrentRate(); err == nil {
		snap.Rate = rate
	}
	if yield, err := d.Vault.PendingYield(); err == nil {
		snap.PendingYield = yield
	}
	return snap
}
