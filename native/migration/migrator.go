package migration

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
)

// Target is the slice of the vault a migrator drives. The migrator acts as
// the vault admin between Start and Finish or Cancel.
type Target interface {
	Admin() common.Address
	State() *vault.State
	BridgeConnector() vault.BridgeConnector
	RewardsLiquidator() vault.RewardsLiquidator
	InsuranceConnector() vault.InsuranceConnector
	SetBridgeConnector(caller common.Address, bridge vault.BridgeConnector) error
	ConfigureAndHandOver(caller common.Address, cfg vault.Configuration, admin common.Address) error
	ChangeAdmin(caller, admin common.Address) error
}

// Params describes one migration attempt.
type Params struct {
	// Address is the principal the migrator acts as on the vault. The vault
	// admin must hand the admin role to it before Start.
	Address  common.Address
	Executor common.Address
	// NewBridge replaces the bridge connector on Finish.
	NewBridge vault.BridgeConnector
	// NewLiquidator optionally replaces the rewards liquidator on Finish.
	NewLiquidator vault.RewardsLiquidator
	// NewRemoteDistributor optionally replaces the remote distributor on
	// Finish. The zero hash keeps the current one.
	NewRemoteDistributor common.Hash
}

// Option customises a Migrator at construction.
type Option func(*Migrator)

// WithEmitter routes the migrator's events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(m *Migrator) {
		if emitter != nil {
			m.emitter = emitter
		}
	}
}

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Migrator swaps the vault's bridge connector, and optionally its rewards
// liquidator and remote distributor, while temporarily holding the vault
// admin role. The swap is reversible until it finishes.
type Migrator struct {
	mu        sync.Mutex
	id        uuid.UUID
	target    Target
	params    Params
	preAdmin  common.Address
	preBridge vault.BridgeConnector
	status    Status
	destroyed bool
	emitter   events.Emitter
	logger    *slog.Logger
}

// New prepares a migration of target. The vault's current admin is captured as
// the admin to restore when the attempt concludes.
func New(target Target, params Params, opts ...Option) (*Migrator, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target vault required", ErrInvalidConfig)
	}
	if params.Address == (common.Address{}) || params.Executor == (common.Address{}) {
		return nil, fmt.Errorf("%w: migrator and executor addresses required", ErrInvalidConfig)
	}
	if params.NewBridge == nil {
		return nil, fmt.Errorf("%w: replacement bridge connector required", ErrInvalidConfig)
	}
	preAdmin := target.Admin()
	if preAdmin == (common.Address{}) {
		return nil, fmt.Errorf("%w: target vault is not initialized", ErrInvalidConfig)
	}
	if preAdmin == params.Address {
		return nil, fmt.Errorf("%w: migrator already holds the admin role", ErrInvalidConfig)
	}
	m := &Migrator{
		id:       uuid.New(),
		target:   target,
		params:   params,
		preAdmin: preAdmin,
		status:   StatusNotStarted,
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Migrator) ID() uuid.UUID                     { return m.id }
func (m *Migrator) Address() common.Address           { return m.params.Address }
func (m *Migrator) Executor() common.Address          { return m.params.Executor }
func (m *Migrator) PreMigrationAdmin() common.Address { return m.preAdmin }

// PreMigrationBridge returns the bridge connector recorded by Start.
func (m *Migrator) PreMigrationBridge() vault.BridgeConnector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preBridge
}

// Status returns the current phase.
func (m *Migrator) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Destroyed reports whether the migrator has been released.
func (m *Migrator) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

func (m *Migrator) emit(evt *types.Event) {
	m.emitter.Emit(migrationEvent{evt: evt})
}

// guard checks the destroyed flag, the caller and then the source state, in
// that order.
func (m *Migrator) guard(caller common.Address, from ...Status) error {
	if m.destroyed {
		return ErrDestroyed
	}
	if !nativecommon.HasRole(caller, m.params.Executor, m.preAdmin) {
		return ErrUnauthorized
	}
	for _, s := range from {
		if m.status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: migration is %s", ErrInvalidState, m.status)
}

// Start records the vault's bridge connector and clears it, disabling
// deposits and reward collection until the migration concludes.
func (m *Migrator) Start(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(caller, StatusNotStarted); err != nil {
		return err
	}
	previous := m.target.BridgeConnector()
	if err := m.target.SetBridgeConnector(m.params.Address, nil); err != nil {
		return fmt.Errorf("migration: clear bridge connector: %w", err)
	}
	m.preBridge = previous
	m.status = StatusStarted
	m.logger.Info("migration started", slog.String("id", m.id.String()), slog.String("caller", caller.Hex()))
	m.emit(NewMigrationStartedEvent(m.id, caller, bridgeAddress(previous)))
	return nil
}

// Finish installs the replacement collaborators and hands the admin role back
// to the pre-migration admin as one vault operation.
func (m *Migrator) Finish(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(caller, StatusStarted); err != nil {
		return err
	}
	cfg := m.configuration(m.params.NewBridge)
	if m.params.NewLiquidator != nil {
		cfg.Liquidator = m.params.NewLiquidator
	}
	if m.params.NewRemoteDistributor != (common.Hash{}) {
		cfg.RemoteDistributor = m.params.NewRemoteDistributor
	}
	if err := m.target.ConfigureAndHandOver(m.params.Address, cfg, m.preAdmin); err != nil {
		return fmt.Errorf("migration: install collaborators: %w", err)
	}
	m.status = StatusFinished
	m.logger.Info("migration finished", slog.String("id", m.id.String()), slog.String("bridge", bridgeAddress(cfg.Bridge).Hex()))
	m.emit(NewMigrationFinishedEvent(m.id, caller, bridgeAddress(cfg.Bridge), m.preAdmin))
	return nil
}

// Cancel restores the vault's pre-migration bridge connector and admin. A
// migration that never started only returns the admin role if it was handed
// over.
func (m *Migrator) Cancel(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(caller, StatusNotStarted, StatusStarted); err != nil {
		return err
	}
	switch {
	case m.status == StatusStarted:
		if err := m.target.ConfigureAndHandOver(m.params.Address, m.configuration(m.preBridge), m.preAdmin); err != nil {
			return fmt.Errorf("migration: restore configuration: %w", err)
		}
	case m.target.Admin() == m.params.Address:
		if err := m.target.ChangeAdmin(m.params.Address, m.preAdmin); err != nil {
			return fmt.Errorf("migration: restore admin: %w", err)
		}
	}
	m.status = StatusCancelled
	m.logger.Info("migration cancelled", slog.String("id", m.id.String()))
	m.emit(NewMigrationCancelledEvent(m.id, caller))
	return nil
}

// Destroy releases a concluded migrator. Every later call fails.
func (m *Migrator) Destroy(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(caller, StatusFinished, StatusCancelled); err != nil {
		return err
	}
	m.destroyed = true
	m.preBridge = nil
	m.target = nil
	m.emit(NewMigratorDestroyedEvent(m.id, caller))
	return nil
}

// configuration returns the vault's current configuration with bridge in
// place of its bridge connector.
func (m *Migrator) configuration(bridge vault.BridgeConnector) vault.Configuration {
	state := m.target.State()
	return vault.Configuration{
		Bridge:                        bridge,
		Liquidator:                    m.target.RewardsLiquidator(),
		Insurance:                     m.target.InsuranceConnector(),
		LiquidationsAdmin:             state.LiquidationsAdmin,
		NoLiquidationInterval:         state.NoLiquidationInterval,
		RestrictedLiquidationInterval: state.RestrictedLiquidationInterval,
		RemoteDistributor:             state.RemoteDistributor,
	}
}

func bridgeAddress(b vault.BridgeConnector) common.Address {
	if b == nil {
		return common.Address{}
	}
	return b.Address()
}
