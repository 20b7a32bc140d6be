package token

import (
	"errors"
	"fmt"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
)

var (
	ErrInvalidAmount         = errors.New("token: amount must be non-negative")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrMintingDisabled       = errors.New("token: minting is disabled")
	ErrNotMinter             = fmt.Errorf("token: caller is not the minter: %w", nativecommon.ErrUnauthorized)
	ErrNotAdmin              = fmt.Errorf("token: caller is not the admin: %w", nativecommon.ErrUnauthorized)
	ErrNoShares              = errors.New("token: no shares outstanding")
)
