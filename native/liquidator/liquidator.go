package liquidator

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/token"
)

// Option customises a Liquidator at construction.
type Option func(*Liquidator)

// WithEmitter routes the liquidator's events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(l *Liquidator) {
		if emitter != nil {
			l.emitter = emitter
		}
	}
}

// Liquidator sells the base asset it holds along a multi-hop path and pays
// the proceeds in the target asset. Every hop is price-checked before any
// swap executes.
type Liquidator struct {
	mu      sync.Mutex
	ledger  *token.Ledger
	address common.Address
	hops    []Hop
	cfg     Config
	check   *SafetyCheck
	emitter events.Emitter
}

// New constructs a liquidator that only vault may drive. Consecutive hops must
// chain: each hop's output asset is the next hop's input asset.
func New(ledger *token.Ledger, address, admin, vault common.Address, hops []Hop, tolerances []*big.Int, opts ...Option) (*Liquidator, error) {
	check, err := NewSafetyCheck(hops, tolerances)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(hops); i++ {
		if hops[i-1].Venue.TokenOut().Address() != hops[i].Venue.TokenIn().Address() {
			return nil, fmt.Errorf("%w: hop %d does not continue hop %d", ErrInvalidConfig, i, i-1)
		}
	}
	if admin == (common.Address{}) || vault == (common.Address{}) {
		return nil, fmt.Errorf("%w: admin and vault required", ErrInvalidConfig)
	}
	l := &Liquidator{
		ledger:  ledger,
		address: address,
		hops:    append([]Hop(nil), hops...),
		cfg:     Config{Admin: admin, Vault: vault, Tolerances: check.tolerances},
		check:   check,
		emitter: events.NoopEmitter{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.emit(NewAdminChangedEvent(admin))
	l.emit(NewPriceDifferenceChangedEvent(check.tolerances))
	return l, nil
}

func (l *Liquidator) emit(evt *types.Event) {
	if l == nil || evt == nil {
		return
	}
	l.emitter.Emit(liquidatorEvent{evt: evt})
}

func (l *Liquidator) Address() common.Address { return l.address }

// BaseAsset returns the asset the liquidator sells.
func (l *Liquidator) BaseAsset() token.Asset { return l.hops[0].Venue.TokenIn() }

// TargetAsset returns the asset the liquidator pays out.
func (l *Liquidator) TargetAsset() token.Asset { return l.hops[len(l.hops)-1].Venue.TokenOut() }

// Config returns a copy of the current configuration.
func (l *Liquidator) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.Clone()
}

// Configure replaces every hop tolerance at once.
func (l *Liquidator) Configure(caller common.Address, tolerances []*big.Int) error {
	if l == nil {
		return errNilLiquidator
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !nativecommon.HasRole(caller, l.cfg.Admin) {
		return ErrUnauthorized
	}
	check, err := NewSafetyCheck(l.hops, tolerances)
	if err != nil {
		return err
	}
	l.check = check
	l.cfg.Tolerances = check.tolerances
	l.emit(NewPriceDifferenceChangedEvent(check.tolerances))
	return nil
}

// ChangeAdmin hands the admin role to admin.
func (l *Liquidator) ChangeAdmin(caller, admin common.Address) error {
	if l == nil {
		return errNilLiquidator
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !nativecommon.HasRole(caller, l.cfg.Admin) {
		return ErrUnauthorized
	}
	if admin == (common.Address{}) {
		return fmt.Errorf("%w: admin required", ErrInvalidConfig)
	}
	l.cfg.Admin = admin
	l.emit(NewAdminChangedEvent(admin))
	return nil
}

// Quote prices amount along the path without executing it.
func (l *Liquidator) Quote(amount *big.Int) (*big.Int, []HopQuote, error) {
	if l == nil {
		return nil, nil, errNilLiquidator
	}
	l.mu.Lock()
	check := l.check
	l.mu.Unlock()
	return check.ValidateAndQuote(amount)
}

// Liquidate sells the liquidator's whole base-asset balance and pays the
// target-asset proceeds to recipient. Only the vault may call it. The sale
// event is emitted when the host journal commits.
func (l *Liquidator) Liquidate(caller, recipient common.Address) (*big.Int, error) {
	if l == nil {
		return nil, errNilLiquidator
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.cfg.Vault {
		return nil, ErrUnauthorized
	}
	amount := l.BaseAsset().BalanceOf(l.address)
	if amount.Sign() == 0 {
		return nil, ErrNothingToLiquidate
	}
	_, quotes, err := l.check.ValidateAndQuote(amount)
	if err != nil {
		return nil, err
	}
	in := amount
	for i, hop := range l.hops {
		if err := hop.Venue.TokenIn().Approve(l.address, hop.Venue.Address(), in); err != nil {
			return nil, fmt.Errorf("liquidator: approve %s: %w", hop.Venue.Name(), err)
		}
		out, err := hop.Venue.Swap(l.address, in, quotes[i].AmountOut)
		if err != nil {
			return nil, err
		}
		in = out
	}
	if err := l.TargetAsset().Transfer(l.address, recipient, in); err != nil {
		return nil, fmt.Errorf("liquidator: pay proceeds: %w", err)
	}
	sold := NewSoldEvent(amount, in, recipient, quotes)
	l.ledger.Defer(func() { l.emit(sold) })
	return in, nil
}
