package common

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// HasRole reports whether caller matches one of the allowed principals. Zero
// addresses never match, so an unset optional role grants nothing.
func HasRole(caller ethcommon.Address, allowed ...ethcommon.Address) bool {
	if caller == (ethcommon.Address{}) {
		return false
	}
	for _, principal := range allowed {
		if principal != (ethcommon.Address{}) && principal == caller {
			return true
		}
	}
	return false
}

// Authorize returns ErrUnauthorized, prefixed with module, unless caller holds
// one of the allowed roles.
func Authorize(module string, caller ethcommon.Address, allowed ...ethcommon.Address) error {
	if HasRole(caller, allowed...) {
		return nil
	}
	if module == "" {
		return ErrUnauthorized
	}
	return fmt.Errorf("%s: %w", module, ErrUnauthorized)
}
