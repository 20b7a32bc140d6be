package liquidator

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// PriceReference supplies the price an execution quote is checked against,
// expressed as output units per input unit scaled by PriceScale.
type PriceReference interface {
	Price() (*big.Int, error)
}

// ManualReference is an operator-maintained reference price, standing in for
// an external oracle feed. Prices older than MaxAge are rejected.
type ManualReference struct {
	mu        sync.RWMutex
	price     *big.Int
	updatedAt time.Time
	maxAge    time.Duration
	nowFn     func() time.Time
}

// NewManualReference constructs an empty reference. A zero maxAge disables the
// freshness check.
func NewManualReference(maxAge time.Duration) *ManualReference {
	return &ManualReference{maxAge: maxAge, nowFn: time.Now}
}

// SetNowFunc overrides the clock used by the freshness check.
func (m *ManualReference) SetNowFunc(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	m.nowFn = now
}

// Set records price observed at ts.
func (m *ManualReference) Set(price *big.Int, ts time.Time) {
	if price == nil {
		return
	}
	m.mu.Lock()
	m.price = new(big.Int).Set(price)
	m.updatedAt = ts
	m.mu.Unlock()
}

// SetDecimal records a decimal price such as "0.9985".
func (m *ManualReference) SetDecimal(rate string, ts time.Time) error {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return fmt.Errorf("manual reference: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("manual reference: invalid rate %q", rate)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("manual reference: rate must be positive")
	}
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(PriceScale))
	m.Set(new(big.Int).Quo(scaled.Num(), scaled.Denom()), ts)
	return nil
}

func (m *ManualReference) Price() (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.price == nil {
		return nil, ErrNoReference
	}
	if m.maxAge > 0 && m.nowFn().Sub(m.updatedAt) > m.maxAge {
		return nil, ErrStaleReference
	}
	return new(big.Int).Set(m.price), nil
}

// SpotReference uses a second, deeper venue's spot price as the reference.
type SpotReference struct {
	Pool *Pool
}

func (s SpotReference) Price() (*big.Int, error) {
	if s.Pool == nil {
		return nil, ErrNoReference
	}
	return s.Pool.SpotPrice()
}
