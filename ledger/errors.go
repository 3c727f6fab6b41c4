package ledger

import (
	"errors"
	"fmt"
)

// Error classes. Every leaf error below matches exactly one class with errors.Is.
var (
	ErrAuthorization = errors.New("ledger: authorization failure")
	ErrPrecondition  = errors.New("ledger: precondition failure")
	ErrArithmetic    = errors.New("ledger: arithmetic failure")
)

// Authorization failures.
var (
	ErrNotOwner       = classed(ErrAuthorization, "ledger: only owner can call this method")
	ErrNotDistributor = classed(ErrAuthorization, "ledger: only distributor can distribute shares")
	ErrNotDepositor   = classed(ErrAuthorization, "ledger: sender is not an authorized depositor")
	ErrPrivateMethod  = classed(ErrAuthorization, "ledger: method is private")
)

// Precondition failures.
var (
	ErrRequiresOneYocto     = classed(ErrPrecondition, "ledger: requires attached deposit of exactly 1 yoctoNEAR")
	ErrNotEnoughGas         = classed(ErrPrecondition, "ledger: not enough gas attached")
	ErrZeroAmount           = classed(ErrPrecondition, "ledger: amount should be a positive number")
	ErrTokenNotWhitelisted  = classed(ErrPrecondition, "ledger: token not whitelisted")
	ErrNoDeposits           = classed(ErrPrecondition, "ledger: no tokens have been deposited")
	ErrNoBalance            = classed(ErrPrecondition, "ledger: account has no tokens")
	ErrTokenNotFound        = classed(ErrPrecondition, "ledger: token not found")
	ErrUnknownContinuation  = classed(ErrPrecondition, "ledger: unknown continuation")
	ErrContinuationsPending = classed(ErrPrecondition, "ledger: continuations are pending")
	ErrInvalidAccountID     = classed(ErrPrecondition, "ledger: invalid account id")
	ErrUnimplemented        = classed(ErrPrecondition, "ledger: unimplemented")
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("ledger: invalid config")

type classError struct {
	class error
	msg   string
}

func classed(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Is(target error) bool { return target == e.class }

// arith marks an amount error as an arithmetic failure.
func arith(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrArithmetic, err)
}
