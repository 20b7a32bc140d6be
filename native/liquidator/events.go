package liquidator

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/core/events"
	"github.com/lidofinance/anchor-collateral-steth/core/types"
)

const (
	EventTypeAdminChanged           = "liquidator.admin_changed"
	EventTypePriceDifferenceChanged = "liquidator.price_difference_changed"
	EventTypeSold                   = "liquidator.sold"
)

type liquidatorEvent struct {
	evt *types.Event
}

func (e liquidatorEvent) EventType() string   { return e.evt.Type }
func (e liquidatorEvent) Event() *types.Event { return e.evt }

// NewAdminChangedEvent returns the payload emitted when the admin changes.
func NewAdminChangedEvent(admin common.Address) *types.Event {
	return &types.Event{Type: EventTypeAdminChanged, Attributes: map[string]string{
		"newAdmin": events.Address(admin),
	}}
}

// NewPriceDifferenceChangedEvent returns the payload for a tolerance update.
// Tolerances are rendered in hop order, comma separated.
func NewPriceDifferenceChangedEvent(tolerances []*big.Int) *types.Event {
	parts := make([]string, len(tolerances))
	for i, tol := range tolerances {
		parts[i] = events.Amount(tol)
	}
	return &types.Event{Type: EventTypePriceDifferenceChanged, Attributes: map[string]string{
		"maxPriceDifferences": strings.Join(parts, ","),
		"hops":                strconv.Itoa(len(tolerances)),
	}}
}

// NewSoldEvent returns the payload for a completed liquidation.
func NewSoldEvent(baseAmount, targetAmount *big.Int, recipient common.Address, quotes []HopQuote) *types.Event {
	attrs := map[string]string{
		"baseAmount":   events.Amount(baseAmount),
		"targetAmount": events.Amount(targetAmount),
		"recipient":    events.Address(recipient),
		"hops":         strconv.Itoa(len(quotes)),
	}
	for i, q := range quotes {
		prefix := "hop" + strconv.Itoa(i) + "."
		attrs[prefix+"venue"] = q.Venue
		attrs[prefix+"amountOut"] = events.Amount(q.AmountOut)
		attrs[prefix+"executionPrice"] = events.Amount(q.ExecutionPrice)
		attrs[prefix+"referencePrice"] = events.Amount(q.ReferencePrice)
	}
	return &types.Event{Type: EventTypeSold, Attributes: attrs}
}
