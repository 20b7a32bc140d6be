package liquidator

import (
	"errors"
	"fmt"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

var (
	errNilLiquidator = errors.New("liquidator: not configured")

	ErrUnauthorized          = fmt.Errorf("liquidator: %w", nativecommon.ErrUnauthorized)
	ErrExcessPriceDeviation  = fmt.Errorf("liquidator: %w", nativecommon.ErrExcessPriceDeviation)
	ErrInvalidConfig         = fmt.Errorf("liquidator: %w", nativecommon.ErrInvalidConfig)
	ErrToleranceOutOfRange   = fmt.Errorf("liquidator: price difference above 100%%: %w", nativecommon.ErrInvalidConfig)
	ErrNothingToLiquidate    = errors.New("liquidator: nothing to liquidate")
	ErrInvalidAmount         = errors.New("liquidator: amount must be positive")
	ErrInsufficientLiquidity = errors.New("liquidator: insufficient venue liquidity")
	ErrSlippage              = errors.New("liquidator: output below minimum")
	ErrStaleReference        = errors.New("liquidator: reference price is stale")
	ErrNoReference           = errors.New("liquidator: reference price unavailable")
)
