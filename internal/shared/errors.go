package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates a registration against an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInsufficientFunds indicates a withdrawal exceeding the savings balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
