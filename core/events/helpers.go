package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

// Amount renders an optional big integer as a decimal string, treating nil as
// zero.
func Amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Address renders an address as a checksummed hex string.
func Address(addr common.Address) string {
	return addr.Hex()
}
