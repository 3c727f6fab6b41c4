package revshare

import (
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
)

// ValidateShareConservation checks that the balances sum exactly to totalShares.
func ValidateShareConservation(entries []Entry, totalShares amount.Amount) error {
	sum := amount.Zero
	for _, e := range entries {
		var err error
		if sum, err = sum.Add(e.Shares); err != nil {
			return fmt.Errorf("%w: %w", ErrShareConservationViolation, err)
		}
	}
	if !sum.Eq(totalShares) {
		return fmt.Errorf("%w: balances=%s total=%s", ErrShareConservationViolation, sum, totalShares)
	}
	return nil
}

// ValidateDistribution checks that distributions match the pro-rata payouts
// for redeeming shares against pool.
func ValidateDistribution(distributions []Distribution, shares, totalShares amount.Amount, pool []PoolEntry) error {
	if len(distributions) != len(pool) {
		return fmt.Errorf("%w: distribution count %d != pool count %d", ErrDistributionMismatch, len(distributions), len(pool))
	}

	expected, err := Payouts(shares, totalShares, pool)
	if err != nil {
		return err
	}

	for i := range distributions {
		if distributions[i].Token != expected[i].Token {
			return fmt.Errorf("%w: entry %d: token %s != %s", ErrDistributionMismatch, i, distributions[i].Token, expected[i].Token)
		}
		if !distributions[i].Amount.Eq(expected[i].Amount) {
			return fmt.Errorf("%w: entry %d: amount %s != expected %s", ErrDistributionMismatch, i, distributions[i].Amount, expected[i].Amount)
		}
	}
	return nil
}
