package types

import "errors"

var (
	// ErrInvalidAccountID indicates an account id violates the host naming rules.
	ErrInvalidAccountID = errors.New("types: invalid account id")

	// ErrInvalidCorrelationID indicates a correlation id is not 32 bytes of hex.
	ErrInvalidCorrelationID = errors.New("types: invalid correlation id")
)
