package types

import "math"

// Gas is the host's prepaid execution budget unit.
type Gas uint64

// TGas is one teragas.
const TGas Gas = 1_000_000_000_000

// Add returns g+o, saturating at the maximum value.
func (g Gas) Add(o Gas) Gas {
	if g > math.MaxUint64-o {
		return math.MaxUint64
	}
	return g + o
}

// Mul returns g*n, saturating at the maximum value.
func (g Gas) Mul(n uint64) Gas {
	if n != 0 && uint64(g) > math.MaxUint64/n {
		return math.MaxUint64
	}
	return g * Gas(n)
}

// Sub returns g-o, or zero when o exceeds g.
func (g Gas) Sub(o Gas) Gas {
	if o > g {
		return 0
	}
	return g - o
}
