package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidKind       = errors.New("unknown transaction kind")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameBalance       = errors.New("transfer requires two distinct balances")
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrAccessDenied      = errors.New("access denied")
)
