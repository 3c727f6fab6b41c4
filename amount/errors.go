package amount

import "errors"

var (
	// ErrOverflow indicates a result does not fit in 128 bits.
	ErrOverflow = errors.New("amount: overflow")

	// ErrUnderflow indicates a subtraction would go below zero.
	ErrUnderflow = errors.New("amount: underflow")

	// ErrDivisionByZero indicates a zero divisor.
	ErrDivisionByZero = errors.New("amount: division by zero")

	// ErrInvalidAmount indicates a string or byte form is not a valid amount.
	ErrInvalidAmount = errors.New("amount: invalid amount")
)
