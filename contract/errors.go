package contract

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/sharepool-go/ledger"
)

var (
	// ErrMissingPromiseResult indicates a callback ran without exactly one promise result.
	ErrMissingPromiseResult = errors.New("contract: expected exactly one promise result")

	// ErrInvalidArgs indicates the method arguments could not be decoded.
	ErrInvalidArgs = errors.New("contract: invalid arguments")

	// ErrNotView indicates a mutating method was called as a view.
	ErrNotView = fmt.Errorf("%w: contract: method is not a view", ledger.ErrPrecondition)
)
