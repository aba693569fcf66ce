package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateOrder    = errors.New("duplicate order")
	ErrAlreadyClaimed    = errors.New("reward already claimed today")
	ErrNotEligible       = errors.New("deposit total below reward threshold")
	ErrServiceDisabled   = errors.New("service is disabled")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidLink       = errors.New("invalid link")
	// ErrForeignReference: the gateway reports a payer other than the
	// account presenting the reference.
	ErrForeignReference = errors.New("reference belongs to another payer")
)
