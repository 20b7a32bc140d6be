package common

import "errors"

// Error kinds shared by the vault modules. Module specific errors wrap one of
// these so callers can classify failures with errors.Is.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidState           = errors.New("invalid state")
	ErrContractStopped        = errors.New("contract stopped")
	ErrOperationsNotPermitted = errors.New("operations not permitted")
	ErrStaleVersion           = errors.New("stale version")
	ErrTooSoon                = errors.New("too soon")
	ErrExcessPriceDeviation   = errors.New("excess price deviation")
	ErrAlreadyInitialized     = errors.New("already initialized")
	ErrNotInitialized         = errors.New("not initialized")
	ErrInvalidConfig          = errors.New("invalid configuration")
)

// Kind returns the shared error kind wrapped by err, or nil when err does not
// belong to the taxonomy.
func Kind(err error) error {
	for _, kind := range []error{
		ErrUnauthorized,
		ErrInvalidState,
		ErrContractStopped,
		ErrOperationsNotPermitted,
		ErrStaleVersion,
		ErrTooSoon,
		ErrExcessPriceDeviation,
		ErrAlreadyInitialized,
		ErrNotInitialized,
		ErrInvalidConfig,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
