package revshare

import "errors"

var (
	// ErrInvalidRegistryData indicates the registry snapshot is malformed.
	ErrInvalidRegistryData = errors.New("revshare: invalid registry data")

	// ErrShareConservationViolation indicates balances do not sum to total shares.
	ErrShareConservationViolation = errors.New("revshare: share conservation violated")

	// ErrZeroTotalShares indicates total shares is zero.
	ErrZeroTotalShares = errors.New("revshare: zero total shares")

	// ErrSharesExceedTotal indicates a redemption larger than the outstanding supply.
	ErrSharesExceedTotal = errors.New("revshare: shares exceed total shares")

	// ErrDistributionMismatch indicates payouts differ from the pro-rata formula.
	ErrDistributionMismatch = errors.New("revshare: distribution mismatch")

	// ErrTooManyEntries indicates the registry has more entries than can be encoded.
	ErrTooManyEntries = errors.New("revshare: too many entries")
)
