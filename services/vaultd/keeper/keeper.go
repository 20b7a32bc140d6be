package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/lidofinance/anchor-collateral-steth/native/vault"
	"github.com/lidofinance/anchor-collateral-steth/observability"
	"github.com/lidofinance/anchor-collateral-steth/observability/metrics"
	telemetry "github.com/lidofinance/anchor-collateral-steth/observability/otel"
)

// Vault is the subset of the vault the keeper drives.
type Vault interface {
	CanCollect(caller common.Address) error
	CollectRewards(caller common.Address) (vault.RewardsReceipt, error)
}

// Skip reasons reported in Result.
const (
	SkipTooSoon     = "too_soon"
	SkipRestricted  = "restricted"
	SkipStopped     = "stopped"
	SkipRateLimited = "rate_limited"
)

// Config tunes the keeper loop.
type Config struct {
	Caller             common.Address
	Interval           time.Duration
	MaxAttemptsPerHour int
	// BaseDecimals and TargetDecimals scale the liquidation counters.
	BaseDecimals   uint8
	TargetDecimals uint8
}

// Result describes one tick.
type Result struct {
	Attempted bool
	Skipped   string
	Receipt   vault.RewardsReceipt
}

// Option customises a Keeper.
type Option func(*Keeper)

// WithLogger overrides the keeper logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keeper) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithAfterTick registers a hook run after every tick, typically to refresh
// gauges.
func WithAfterTick(fn func()) Option {
	return func(k *Keeper) { k.afterTick = fn }
}

// WithTracer overrides the tracer used for collection spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(k *Keeper) {
		if tracer != nil {
			k.tracer = tracer
		}
	}
}

// Keeper triggers reward collection as soon as the configured caller is
// allowed to, pacing attempts so a persistently failing collection (for
// example a price deviation) does not hammer the venues.
type Keeper struct {
	vault     Vault
	cfg       Config
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer
	afterTick func()

	mu   sync.Mutex
	last Result
}

// New constructs a keeper.
func New(v Vault, cfg Config, opts ...Option) (*Keeper, error) {
	if v == nil {
		return nil, fmt.Errorf("keeper: vault required")
	}
	if cfg.Caller == (common.Address{}) {
		return nil, fmt.Errorf("keeper: caller required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxAttemptsPerHour <= 0 {
		cfg.MaxAttemptsPerHour = 6
	}
	if cfg.BaseDecimals == 0 {
		cfg.BaseDecimals = 18
	}
	if cfg.TargetDecimals == 0 {
		cfg.TargetDecimals = 18
	}
	k := &Keeper{
		vault:   v,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.MaxAttemptsPerHour)), 1),
		logger:  slog.Default(),
		tracer:  telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Caller returns the address the keeper collects as.
func (k *Keeper) Caller() common.Address { return k.cfg.Caller }

// Last returns the result of the most recent tick.
func (k *Keeper) Last() Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.last
}

// Run ticks until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.cfg.Interval)
	defer ticker.Stop()
	k.logger.Info("keeper started", "caller", k.cfg.Caller.Hex(), "interval", k.cfg.Interval.String())
	for {
		if _, err := k.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			k.logger.Warn("reward collection failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick attempts one collection. Closed windows and an exhausted attempt
// budget are reported as skips, not errors.
func (k *Keeper) Tick(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if k.afterTick != nil {
		defer k.afterTick()
	}
	res, err := k.tick(ctx)
	k.mu.Lock()
	k.last = res
	k.mu.Unlock()
	return res, err
}

func (k *Keeper) tick(ctx context.Context) (Result, error) {
	if err := k.vault.CanCollect(k.cfg.Caller); err != nil {
		switch {
		case errors.Is(err, vault.ErrTooSoon):
			return Result{Skipped: SkipTooSoon}, nil
		case errors.Is(err, vault.ErrUnauthorized):
			return Result{Skipped: SkipRestricted}, nil
		case errors.Is(err, vault.ErrContractStopped):
			return Result{Skipped: SkipStopped}, nil
		default:
			return Result{}, err
		}
	}
	if !k.limiter.Allow() {
		return Result{Skipped: SkipRateLimited}, nil
	}

	_, span := k.tracer.Start(ctx, "vault.collect_rewards",
		trace.WithAttributes(attribute.String("caller", k.cfg.Caller.Hex())))
	defer span.End()
	start := time.Now()
	receipt, err := k.vault.CollectRewards(k.cfg.Caller)
	observability.Operations().Observe("collect_rewards", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{Attempted: true}, err
	}
	span.SetAttributes(
		attribute.String("base_amount", amountString(receipt.BaseAmount)),
		attribute.String("target_amount", amountString(receipt.TargetAmount)),
	)
	if receipt.BaseAmount != nil && receipt.BaseAmount.Sign() > 0 {
		metrics.Vault().AddLiquidation(receipt.BaseAmount, receipt.TargetAmount, k.cfg.BaseDecimals, k.cfg.TargetDecimals)
	}
	k.logger.Info("rewards collected",
		"base_amount", amountString(receipt.BaseAmount),
		"target_amount", amountString(receipt.TargetAmount))
	return Result{Attempted: true, Receipt: receipt}, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
