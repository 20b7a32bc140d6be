package vault

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

// committer is implemented by journals that release their undo history and
// run deferred side effects once an operation commits.
type committer interface {
	Commit()
}

// StateStore persists the vault record after every committed operation.
type StateStore interface {
	Save(state *State) error
}

// Vault custodies the base asset, issues receipts against it and skims the
// yield it accrues. Every mutating call is serialized and all-or-nothing: a
// failing call leaves the vault, its collaborators and the event stream as
// they were.
type Vault struct {
	mu      sync.Mutex
	address common.Address
	state   *State
	c       Collaborators
	journal Journal
	store   StateStore
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() time.Time
}

// New constructs an uninitialized vault. Operations are stopped until the
// admin resumes them after initialization.
func New(address common.Address, journal Journal) *Vault {
	state := &State{}
	state.ensureDefaults()
	return &Vault{
		address: address,
		state:   state,
		journal: journal,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   time.Now,
	}
}

// Restore rebinds a persisted state record to live collaborator handles, the
// way an upgrade swaps the code operating on unchanged storage. Every non-nil
// handle must match the reference recorded in state.
func Restore(address common.Address, journal Journal, state *State, c Collaborators) (*Vault, error) {
	if state == nil {
		return nil, fmt.Errorf("vault: restore requires state")
	}
	checks := []struct {
		name      string
		recorded  common.Address
		handle    common.Address
		mandatory bool
	}{
		{"receipt token", state.ReceiptToken, assetAddress(c.Receipt), state.Initialized()},
		{"base asset", state.BaseAsset, assetAddress(c.BaseAsset), state.Initialized()},
		{"bridge connector", state.BridgeConnector, bridgeAddress(c.Bridge), false},
		{"rewards liquidator", state.RewardsLiquidator, liquidatorAddress(c.Liquidator), false},
		{"insurance connector", state.InsuranceConnector, insuranceAddress(c.Insurance), false},
	}
	for _, check := range checks {
		if check.handle != check.recorded {
			return nil, fmt.Errorf("%w: %s %s != %s", ErrCollaboratorMismatch, check.name, check.handle.Hex(), check.recorded.Hex())
		}
		if check.mandatory && check.handle == (common.Address{}) {
			return nil, fmt.Errorf("%w: %s missing", ErrCollaboratorMismatch, check.name)
		}
	}
	v := New(address, journal)
	v.state = state.Clone()
	v.state.ensureDefaults()
	v.c = c
	return v, nil
}

// SetEmitter configures the event emitter used by the vault. Passing nil
// resets the emitter to a no-op implementation.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetNowFunc overrides the clock used for collection scheduling.
func (v *Vault) SetNowFunc(now func() time.Time) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if now == nil {
		v.nowFn = time.Now
		return
	}
	v.nowFn = now
}

func (v *Vault) SetLogger(logger *slog.Logger) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	v.logger = logger
}

// SetStore wires the persistence layer. A failed save aborts the operation.
func (v *Vault) SetStore(store StateStore) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store = store
}

// Address returns the vault's custody address.
func (v *Vault) Address() common.Address { return v.address }

// txn is the working set of a single operation. It is discarded when the
// operation fails.
type txn struct {
	vault common.Address
	state *State
	c     Collaborators
	now   time.Time
	buf   events.Buffer
}

func (t *txn) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	t.buf.Emit(vaultEvent{evt: evt})
}

func (t *txn) rates() RateEngine { return newRateEngine(t.vault, t.state, &t.c) }

func (t *txn) requireInitialized() error {
	if !t.state.Initialized() {
		return ErrNotInitialized
	}
	return nil
}

func (t *txn) requireAdmin(caller common.Address) error {
	if err := t.requireInitialized(); err != nil {
		return err
	}
	if !nativecommon.HasRole(caller, t.state.Admin) {
		return ErrUnauthorized
	}
	return nil
}

func (t *txn) requireRunning() error {
	if err := t.requireInitialized(); err != nil {
		return err
	}
	if !t.state.OperationsAllowed {
		return ErrContractStopped
	}
	return nil
}

// execute runs fn against a copy of the state and commits it only when fn and
// the optional persistence step both succeed.
func (v *Vault) execute(op string, fn func(*txn) error) error {
	if v == nil {
		return errNilVault
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	tx := &txn{vault: v.address, state: v.state.Clone(), c: v.c, now: v.nowFn()}
	snapshot := 0
	if v.journal != nil {
		snapshot = v.journal.Snapshot()
	}
	err := fn(tx)
	if err == nil && v.store != nil {
		if saveErr := v.store.Save(tx.state); saveErr != nil {
			err = fmt.Errorf("vault: persist state: %w", saveErr)
		}
	}
	if err != nil {
		if v.journal != nil {
			v.journal.RevertToSnapshot(snapshot)
		}
		tx.buf.Discard()
		v.logger.Debug("vault operation reverted", slog.String("op", op), slog.Any("error", err))
		return err
	}
	v.state = tx.state
	v.c = tx.c
	if c, ok := v.journal.(committer); ok {
		c.Commit()
	}
	tx.buf.Flush(v.emitter)
	return nil
}

// view runs fn against the committed state.
func (v *Vault) view(fn func(*txn) error) error {
	if v == nil {
		return errNilVault
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(&txn{vault: v.address, state: v.state, c: v.c, now: v.nowFn()})
}

// State returns a copy of the persistent vault record.
func (v *Vault) State() *State {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.Clone()
}

// Collaborators returns the live collaborator handles.
func (v *Vault) Collaborators() Collaborators {
	if v == nil {
		return Collaborators{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.c
}

func (v *Vault) Admin() common.Address                  { return v.State().Admin }
func (v *Vault) EmergencyAdmin() common.Address         { return v.State().EmergencyAdmin }
func (v *Vault) LiquidationsAdmin() common.Address      { return v.State().LiquidationsAdmin }
func (v *Vault) Version() uint64                        { return v.State().Version }
func (v *Vault) OperationsAllowed() bool                { return v.State().OperationsAllowed }
func (v *Vault) RemoteDistributor() common.Hash         { return v.State().RemoteDistributor }
func (v *Vault) BridgeConnector() BridgeConnector       { return v.Collaborators().Bridge }
func (v *Vault) RewardsLiquidator() RewardsLiquidator   { return v.Collaborators().Liquidator }
func (v *Vault) InsuranceConnector() InsuranceConnector { return v.Collaborators().Insurance }

// CurrentRate returns the redemption rate scaled by Scale.
func (v *Vault) CurrentRate() (*big.Int, error) {
	var rate *big.Int
	err := v.view(func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		var err error
		rate, err = t.rates().CurrentRate()
		return err
	})
	return rate, err
}

// OperationsPermitted reports whether the rate is stable relative to the last
// collection.
func (v *Vault) OperationsPermitted() (bool, error) {
	var ok bool
	err := v.view(func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		var err error
		ok, err = t.rates().OperationsPermitted()
		return err
	})
	return ok, err
}

// CanDepositOrWithdraw reports whether the vault is running and its rate is
// stable.
func (v *Vault) CanDepositOrWithdraw() bool {
	var ok bool
	_ = v.view(func(t *txn) error {
		if t.requireRunning() != nil {
			return nil
		}
		permitted, err := t.rates().OperationsPermitted()
		ok = err == nil && permitted
		return nil
	})
	return ok
}

// QuoteDeposit returns the receipt amount a deposit of amount would mint.
func (v *Vault) QuoteDeposit(amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := v.view(func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		var err error
		out, err = t.rates().QuoteDeposit(amount)
		return err
	})
	return out, err
}

// QuoteWithdraw returns the base amount a withdrawal of receiptAmount would
// release.
func (v *Vault) QuoteWithdraw(receiptAmount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := v.view(func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		var err error
		out, err = t.rates().QuoteWithdraw(receiptAmount)
		return err
	})
	return out, err
}

// PendingYield returns the yield a collection would liquidate right now.
func (v *Vault) PendingYield() (*big.Int, error) {
	var out *big.Int
	err := v.view(func(t *txn) error {
		if err := t.requireInitialized(); err != nil {
			return err
		}
		var err error
		out, err = t.rates().Yield()
		return err
	})
	return out, err
}

// CanCollect reports whether caller may collect rewards now.
func (v *Vault) CanCollect(caller common.Address) error {
	return v.view(func(t *txn) error {
		if err := t.requireRunning(); err != nil {
			return err
		}
		return CanCollect(t.state, caller, t.now)
	})
}
