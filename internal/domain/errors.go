package domain

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrSignatureInvalid     = errors.New("webhook signature invalid")
	ErrMalformedEvent       = errors.New("malformed payment event")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrLedgerUnavailable    = errors.New("ledger unavailable")
	ErrCheckoutUnavailable  = errors.New("checkout provider unavailable")
	ErrWalletOverflow       = errors.New("wallet total out of range")
)
