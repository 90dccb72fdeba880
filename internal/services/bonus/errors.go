package bonus

import "errors"

// Service errors
var (
	ErrAccessDenied            = errors.New("only accountants can manage bonuses")
	ErrAlreadySent             = errors.New("bonus has already been sent")
	ErrNonPositiveAmount       = errors.New("bonus amount must be greater than zero")
	ErrInsufficientMasterFunds = errors.New("insufficient funds in master balance")
	ErrBonusNotFound           = errors.New("bonus not found")
	ErrInvalidPeriod           = errors.New("invalid bonus period")
)
