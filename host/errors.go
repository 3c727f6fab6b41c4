package host

import "errors"

var (
	// ErrAccountNotFound indicates a receipt addressed an account with no contract.
	ErrAccountNotFound = errors.New("host: account not found")

	// ErrViewHasPromises indicates a view call tried to schedule promises.
	ErrViewHasPromises = errors.New("host: view call scheduled promises")

	// ErrMethodNotFound indicates a contract does not export the method.
	ErrMethodNotFound = errors.New("host: method not found")

	// ErrExecution wraps a receipt failure surfaced to the transaction caller.
	ErrExecution = errors.New("host: execution failed")
)
