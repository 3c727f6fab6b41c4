package revshare

import (
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
)

// ProRata returns floor(shares * pool / totalShares).
// Truncation dust stays with the pool for later holders.
func ProRata(shares, pool, totalShares amount.Amount) (amount.Amount, error) {
	if totalShares.IsZero() {
		return amount.Zero, ErrZeroTotalShares
	}
	if totalShares.Lt(shares) {
		return amount.Zero, fmt.Errorf("%w: %s > %s", ErrSharesExceedTotal, shares, totalShares)
	}
	return amount.MulDiv(shares, pool, totalShares)
}

// Payouts computes what redeeming shares out of totalShares yields for every
// pool entry, in pool order.
func Payouts(shares, totalShares amount.Amount, pool []PoolEntry) ([]Distribution, error) {
	distributions := make([]Distribution, len(pool))
	for i, entry := range pool {
		amt, err := ProRata(shares, entry.Amount, totalShares)
		if err != nil {
			return nil, fmt.Errorf("revshare: payout for %s: %w", entry.Token, err)
		}
		distributions[i] = Distribution{Token: entry.Token, Amount: amt}
	}
	return distributions, nil
}
