package vault

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("payment not found")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrAlreadyCanceled     = errors.New("payment already canceled")
	ErrAlreadyPaid         = errors.New("payment already paid")
	ErrTooEarly            = errors.New("earliest pay time not reached")
	ErrSpenderRevoked      = errors.New("authorizing spender no longer authorized")
	ErrDelayBudgetExceeded = errors.New("security guard delay budget exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrReentrant           = errors.New("reentrant call rejected")
)
