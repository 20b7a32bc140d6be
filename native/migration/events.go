package migration

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
)

const (
	EventTypeMigrationStarted   = "migration.started"
	EventTypeMigrationFinished  = "migration.finished"
	EventTypeMigrationCancelled = "migration.cancelled"
	EventTypeMigratorDestroyed  = "migration.destroyed"
)

type migrationEvent struct {
	evt *types.Event
}

func (e migrationEvent) EventType() string   { return e.evt.Type }
func (e migrationEvent) Event() *types.Event { return e.evt }

func newMigrationEvent(eventType string, id uuid.UUID, caller common.Address, extra map[string]string) *types.Event {
	attrs := map[string]string{
		"migrationId": id.String(),
		"caller":      events.Address(caller),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewMigrationStartedEvent records the collaborator taken out of service.
func NewMigrationStartedEvent(id uuid.UUID, caller, previousBridge common.Address) *types.Event {
	return newMigrationEvent(EventTypeMigrationStarted, id, caller, map[string]string{
		"previousBridgeConnector": events.Address(previousBridge),
	})
}

// NewMigrationFinishedEvent records the installed collaborator and the
// restored admin.
func NewMigrationFinishedEvent(id uuid.UUID, caller, bridge, admin common.Address) *types.Event {
	return newMigrationEvent(EventTypeMigrationFinished, id, caller, map[string]string{
		"bridgeConnector": events.Address(bridge),
		"admin":           events.Address(admin),
	})
}

func NewMigrationCancelledEvent(id uuid.UUID, caller common.Address) *types.Event {
	return newMigrationEvent(EventTypeMigrationCancelled, id, caller, nil)
}

func NewMigratorDestroyedEvent(id uuid.UUID, caller common.Address) *types.Event {
	return newMigrationEvent(EventTypeMigratorDestroyed, id, caller, nil)
}
