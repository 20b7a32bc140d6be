package vault

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/native/bridge"
	"github.com/lidofinance/anchor-collateral-steth/native/insurance"
	"github.com/lidofinance/anchor-collateral-steth/native/liquidator"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

var (
	vaultAddr      = common.HexToAddress("0x1000")
	adminAddr      = common.HexToAddress("0x2000")
	emergencyAddr  = common.HexToAddress("0x2001")
	keeperAddr     = common.HexToAddress("0x2002")
	strangerAddr   = common.HexToAddress("0x2003")
	oracleAddr     = common.HexToAddress("0x3000")
	aliceAddr      = common.HexToAddress("0x4000")
	bobAddr        = common.HexToAddress("0x4001")
	whaleAddr      = common.HexToAddress("0x4002")
	bridgeAddr     = common.HexToAddress("0x5000")
	insuranceAddr  = common.HexToAddress("0x5001")
	liquidatorAddr = common.HexToAddress("0x5002")

	remoteAlice = common.HexToHash("0xa11ce")
	distributor = common.HexToHash("0xd157")

	genesis = time.Unix(1_700_000_000, 0).UTC()
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

// harness is a fully wired vault: a rebasing base asset, a mintable receipt,
// a bridge, an insurance connector and a three-hop liquidator selling
// stETH -> WETH -> USDC -> UST.
type harness struct {
	t          *testing.T
	ledger     *token.Ledger
	steth      *token.Rebasing
	receipt    *token.Token
	weth       *token.Token
	usdc       *token.Token
	ust        *token.Token
	bridge     *bridge.Connector
	insurance  *insurance.Connector
	liquidator *liquidator.Liquidator
	oracle     *liquidator.ManualReference
	vault      *Vault
	events     *events.Recorder
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, ledger: token.NewLedger(), events: &events.Recorder{}, now: genesis}
	h.steth = token.NewRebasing(h.ledger, common.HexToAddress("0x6000"), "stETH", oracleAddr)
	h.receipt = token.NewToken(h.ledger, common.HexToAddress("0x6001"), "bETH", 18, adminAddr)
	h.weth = token.NewToken(h.ledger, common.HexToAddress("0x6002"), "WETH", 18, adminAddr)
	h.usdc = token.NewToken(h.ledger, common.HexToAddress("0x6003"), "USDC", 6, adminAddr)
	h.ust = token.NewToken(h.ledger, common.HexToAddress("0x6004"), "UST", 18, adminAddr)
	if err := h.receipt.SetMinter(adminAddr, vaultAddr); err != nil {
		t.Fatalf("set minter: %v", err)
	}

	h.bridge = bridge.NewConnector(h.ledger, bridgeAddr)
	h.insurance = insurance.NewConnector(h.ledger, insuranceAddr, adminAddr, h.steth)
	if err := h.steth.SetBurner(oracleAddr, insuranceAddr); err != nil {
		t.Fatalf("set burner: %v", err)
	}
	h.liquidator = h.newLiquidator()

	for holder, amount := range map[common.Address]*big.Int{
		whaleAddr: ether(1_000),
		aliceAddr: ether(100),
		bobAddr:   ether(100),
	} {
		h.submit(holder, amount)
	}

	h.vault = New(vaultAddr, h.ledger)
	h.vault.SetEmitter(h.events)
	h.vault.SetNowFunc(func() time.Time { return h.now })
	if err := h.vault.Initialize(InitParams{
		Receipt:        h.receipt,
		BaseAsset:      h.steth,
		Admin:          adminAddr,
		EmergencyAdmin: emergencyAddr,
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := h.vault.Configure(adminAddr, Configuration{
		Bridge:                        h.bridge,
		Liquidator:                    h.liquidator,
		Insurance:                     h.insurance,
		LiquidationsAdmin:             keeperAddr,
		NoLiquidationInterval:         time.Hour,
		RestrictedLiquidationInterval: 2 * time.Hour,
		RemoteDistributor:             distributor,
	}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := h.vault.Resume(adminAddr); err != nil {
		t.Fatalf("resume: %v", err)
	}
	h.events.Reset()
	return h
}

func (h *harness) newLiquidator() *liquidator.Liquidator {
	t := h.t
	t.Helper()
	pool := func(name string, addr int64, in, out token.Asset, fee int64) *liquidator.Pool {
		p, err := liquidator.NewPool(name, common.BigToAddress(big.NewInt(addr)), in, out, fee)
		if err != nil {
			t.Fatalf("pool %s: %v", name, err)
		}
		return p
	}
	stethWeth := pool("curve-steth-weth", 0x7000, h.steth, h.weth, 4)
	wethUsdc := pool("uniswap-weth-usdc", 0x7001, h.weth, h.usdc, 30)
	wethUsdcRef := pool("reference-weth-usdc", 0x7002, h.weth, h.usdc, 0)
	usdcUst := pool("curve-usdc-ust", 0x7003, h.usdc, h.ust, 4)

	h.submit(stethWeth.Address(), ether(10_000))
	h.weth.Credit(stethWeth.Address(), ether(10_000))
	h.weth.Credit(wethUsdc.Address(), ether(1_000))
	h.usdc.Credit(wethUsdc.Address(), usdc(2_000_000))
	h.weth.Credit(wethUsdcRef.Address(), ether(100_000))
	h.usdc.Credit(wethUsdcRef.Address(), usdc(200_000_000))
	h.usdc.Credit(usdcUst.Address(), usdc(2_000_000))
	h.ust.Credit(usdcUst.Address(), ether(2_000_000))

	h.oracle = liquidator.NewManualReference(0)
	h.oracle.Set(new(big.Int).Set(liquidator.PriceScale), genesis)
	stable := liquidator.NewManualReference(0)
	if err := stable.SetDecimal("1000000000000", genesis); err != nil {
		t.Fatalf("stable reference: %v", err)
	}

	l, err := liquidator.New(h.ledger, liquidatorAddr, adminAddr, vaultAddr, []liquidator.Hop{
		{Venue: stethWeth, Reference: h.oracle},
		{Venue: wethUsdc, Reference: liquidator.SpotReference{Pool: wethUsdcRef}},
		{Venue: usdcUst, Reference: stable},
	}, []*big.Int{liquidator.Percent(5), liquidator.Percent(5), liquidator.Percent(5)}, liquidator.WithEmitter(h.events))
	if err != nil {
		t.Fatalf("liquidator: %v", err)
	}
	return l
}

func (h *harness) submit(holder common.Address, amount *big.Int) {
	h.t.Helper()
	if _, err := h.steth.Submit(holder, amount); err != nil {
		h.t.Fatalf("submit: %v", err)
	}
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *harness) rebase(numerator, denominator int64) {
	h.t.Helper()
	if err := h.steth.Rebase(oracleAddr, numerator, denominator); err != nil {
		h.t.Fatalf("rebase: %v", err)
	}
}

func (h *harness) deposit(from common.Address, amount *big.Int) DepositReceipt {
	h.t.Helper()
	if err := h.steth.Approve(from, vaultAddr, amount); err != nil {
		h.t.Fatalf("approve: %v", err)
	}
	receipt, err := h.vault.Deposit(from, amount, remoteAlice, nil)
	if err != nil {
		h.t.Fatalf("deposit: %v", err)
	}
	return receipt
}

// bridgeBack releases receipts held by the bridge to holder, as a transfer
// back from the remote network would.
func (h *harness) bridgeBack(holder common.Address, amount *big.Int) {
	h.t.Helper()
	if err := h.receipt.Transfer(bridgeAddr, holder, amount); err != nil {
		h.t.Fatalf("bridge back: %v", err)
	}
}

func (h *harness) mustRate() *big.Int {
	h.t.Helper()
	rate, err := h.vault.CurrentRate()
	if err != nil {
		h.t.Fatalf("rate: %v", err)
	}
	return rate
}
