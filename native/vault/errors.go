package vault

import (
	"errors"
	"fmt"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

var (
	errNilVault = errors.New("vault: not configured")

	ErrUnauthorized           = fmt.Errorf("vault: %w", nativecommon.ErrUnauthorized)
	ErrContractStopped        = fmt.Errorf("vault: %w", nativecommon.ErrContractStopped)
	ErrOperationsNotPermitted = fmt.Errorf("vault: %w", nativecommon.ErrOperationsNotPermitted)
	ErrStaleVersion           = fmt.Errorf("vault: %w", nativecommon.ErrStaleVersion)
	ErrTooSoon                = fmt.Errorf("vault: %w", nativecommon.ErrTooSoon)
	ErrAlreadyInitialized     = fmt.Errorf("vault: %w", nativecommon.ErrAlreadyInitialized)
	ErrNotInitialized         = fmt.Errorf("vault: %w", nativecommon.ErrNotInitialized)
	ErrAlreadyStopped         = fmt.Errorf("vault: already stopped: %w", nativecommon.ErrInvalidState)
	ErrAlreadyRunning         = fmt.Errorf("vault: already running: %w", nativecommon.ErrInvalidState)
	ErrUnexpectedVersion      = fmt.Errorf("vault: unexpected contract version: %w", nativecommon.ErrInvalidState)
	ErrBridgeUnset            = fmt.Errorf("vault: bridge connector not set: %w", nativecommon.ErrInvalidState)
	ErrLiquidatorUnset        = fmt.Errorf("vault: rewards liquidator not set: %w", nativecommon.ErrInvalidState)
	ErrInsurancePending       = fmt.Errorf("vault: insurance burns pending collection: %w", nativecommon.ErrInvalidState)
	ErrRefundedSupply         = fmt.Errorf("%w: withdrawal would redeem refunded receipt supply", ErrOperationsNotPermitted)
	ErrInvalidConfig          = fmt.Errorf("vault: %w", nativecommon.ErrInvalidConfig)
	ErrInvalidAmount          = errors.New("vault: amount must be positive")
	ErrArithmetic             = errors.New("vault: arithmetic overflow")
	ErrCollaboratorMismatch   = fmt.Errorf("vault: collaborator does not match persisted reference: %w", nativecommon.ErrInvalidConfig)
)
