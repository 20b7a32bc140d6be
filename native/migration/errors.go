package migration

import (
	"fmt"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

var (
	ErrUnauthorized  = fmt.Errorf("migration: %w", nativecommon.ErrUnauthorized)
	ErrInvalidState  = fmt.Errorf("migration: %w", nativecommon.ErrInvalidState)
	ErrInvalidConfig = fmt.Errorf("migration: %w", nativecommon.ErrInvalidConfig)
	ErrDestroyed     = fmt.Errorf("migration: migrator destroyed: %w", nativecommon.ErrInvalidState)
)
