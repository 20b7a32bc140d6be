package vault

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CanCollect applies the graduated collection window. Before the no-collection
// interval elapses nobody may collect; until the restricted interval elapses
// only the liquidations admin may; afterwards anyone may.
func CanCollect(state *State, caller common.Address, now time.Time) error {
	elapsed := now.Sub(state.LastLiquidationTime)
	if elapsed < state.NoLiquidationInterval {
		return ErrTooSoon
	}
	if elapsed < state.RestrictedLiquidationInterval {
		if caller != state.LiquidationsAdmin || caller == (common.Address{}) {
			return ErrUnauthorized
		}
	}
	return nil
}

// NextCollection returns the earliest times at which the liquidations admin
// and any other caller may collect.
func NextCollection(state *State) (admin, anyone time.Time) {
	return state.LastLiquidationTime.Add(state.NoLiquidationInterval),
		state.LastLiquidationTime.Add(state.RestrictedLiquidationInterval)
}
