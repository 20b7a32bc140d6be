package metrics

import (
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics exposes gauges describing the custodial position.
type VaultMetrics struct {
	rate           prometheus.Gauge
	sharePrice     prometheus.Gauge
	pendingYield   prometheus.Gauge
	custody        prometheus.Gauge
	receiptSupply  prometheus.Gauge
	operations     prometheus.Gauge
	version        prometheus.Gauge
	lastCollection prometheus.Gauge
	proceeds       *prometheus.CounterVec
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		gauge := func(name, help string) prometheus.Gauge {
			return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "anchor", Subsystem: "vault", Name: name, Help: help})
		}
		vaultRegistry = &VaultMetrics{
			rate:           gauge("redemption_rate", "Base asset redeemable per receipt unit."),
			sharePrice:     gauge("base_share_price", "Pooled base asset per share."),
			pendingYield:   gauge("pending_yield", "Base asset yield a collection would liquidate now, in whole units."),
			custody:        gauge("custody_balance", "Base asset held by the vault, in whole units."),
			receiptSupply:  gauge("receipt_supply", "Outstanding receipt supply, in whole units."),
			operations:     gauge("operations_allowed", "1 when deposits and withdrawals are enabled."),
			version:        gauge("version", "Persistent state version."),
			lastCollection: gauge("last_collection_timestamp_seconds", "Unix time of the last reward collection."),
			proceeds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "anchor",
				Subsystem: "vault",
				Name:      "liquidated_total",
				Help:      "Cumulative liquidated amounts by side, in whole units.",
			}, []string{"side"}),
		}
		prometheus.MustRegister(
			vaultRegistry.rate,
			vaultRegistry.sharePrice,
			vaultRegistry.pendingYield,
			vaultRegistry.custody,
			vaultRegistry.receiptSupply,
			vaultRegistry.operations,
			vaultRegistry.version,
			vaultRegistry.lastCollection,
			vaultRegistry.proceeds,
		)
	})
	return vaultRegistry
}

// Snapshot is the point-in-time view recorded by Observe. Nil values leave
// the corresponding gauge untouched.
type Snapshot struct {
	Rate              *big.Int
	RateScale         *big.Int
	SharePrice        *big.Int
	SharePriceScale   *big.Int
	PendingYield      *big.Int
	Custody           *big.Int
	ReceiptSupply     *big.Int
	Decimals          uint8
	OperationsAllowed bool
	Version           uint64
	LastCollection    time.Time
}

func (m *VaultMetrics) Observe(s Snapshot) {
	if m == nil {
		return
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.Decimals)), nil)
	setRatio(m.rate, s.Rate, s.RateScale)
	setRatio(m.sharePrice, s.SharePrice, s.SharePriceScale)
	setRatio(m.pendingYield, s.PendingYield, unit)
	setRatio(m.custody, s.Custody, unit)
	setRatio(m.receiptSupply, s.ReceiptSupply, unit)
	if s.OperationsAllowed {
		m.operations.Set(1)
	} else {
		m.operations.Set(0)
	}
	m.version.Set(float64(s.Version))
	if !s.LastCollection.IsZero() {
		m.lastCollection.Set(float64(s.LastCollection.Unix()))
	}
}

// AddLiquidation accumulates one collection's liquidated base amount and the
// target amount it fetched.
func (m *VaultMetrics) AddLiquidation(base, target *big.Int, baseDecimals, targetDecimals uint8) {
	if m == nil {
		return
	}
	m.proceeds.WithLabelValues("base").Add(Ratio(base, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(baseDecimals)), nil)))
	m.proceeds.WithLabelValues("target").Add(Ratio(target, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(targetDecimals)), nil)))
}

func setRatio(g prometheus.Gauge, value, scale *big.Int) {
	if value == nil {
		return
	}
	g.Set(Ratio(value, scale))
}

// Ratio returns value/scale as a float, treating a nil or zero scale as one.
func Ratio(value, scale *big.Int) float64 {
	if value == nil {
		return 0
	}
	num := new(big.Float).SetInt(value)
	if scale != nil && scale.Sign() > 0 {
		num.Quo(num, new(big.Float).SetInt(scale))
	}
	f, _ := num.Float64()
	return f
}
