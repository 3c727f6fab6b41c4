// Package amount implements unsigned 128-bit token and share quantities.
//
// Values are stored in a 256-bit integer so that products of two amounts
// never overflow before a division; every result that leaves the package is
// checked back into the 128-bit range.
package amount

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Bits is the width of an Amount.
const Bits = 128

// Amount is an immutable unsigned 128-bit quantity. The zero value is 0.
type Amount struct {
	v uint256.Int
}

// Zero is the zero amount.
var Zero = Amount{}

// Max is 2^128 - 1.
var Max = func() Amount {
	var a Amount
	a.v.Lsh(uint256.NewInt(1), Bits)
	a.v.SubUint64(&a.v, 1)
	return a
}()

// New returns an amount holding v.
func New(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Parse decodes a base-10 string.
func Parse(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	return fromInt(v)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBig converts a non-negative big.Int.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: negative or nil", ErrInvalidAmount)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, b)
	}
	return fromInt(v)
}

// FromBytes16 decodes a 16-byte big-endian value.
func FromBytes16(b []byte) (Amount, error) {
	if len(b) != 16 {
		return Zero, fmt.Errorf("%w: expected 16 bytes, got %d", ErrInvalidAmount, len(b))
	}
	var a Amount
	a.v.SetBytes(b)
	return a, nil
}

func fromInt(v *uint256.Int) (Amount, error) {
	if v.BitLen() > Bits {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, v.Dec())
	}
	return Amount{v: *v}, nil
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	var z uint256.Int
	z.Add(&a.v, &b.v) // both operands < 2^128, cannot wrap 256 bits
	return fromInt(&z)
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Zero, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	var z uint256.Int
	z.Sub(&a.v, &b.v)
	return Amount{v: z}, nil
}

// Mul returns a*b.
func (a Amount) Mul(b Amount) (Amount, error) {
	var z uint256.Int
	z.Mul(&a.v, &b.v)
	return fromInt(&z)
}

// Div returns floor(a/b).
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero, ErrDivisionByZero
	}
	var z uint256.Int
	z.Div(&a.v, &b.v)
	return Amount{v: z}, nil
}

// MulDiv returns floor(x*y/d). The product is held in 256 bits, so it never
// overflows before the division.
func MulDiv(x, y, d Amount) (Amount, error) {
	if d.IsZero() {
		return Zero, ErrDivisionByZero
	}
	var p uint256.Int
	p.Mul(&x.v, &y.v)
	p.Div(&p, &d.v)
	return fromInt(&p)
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.v.Lt(&b.v) {
		return a
	}
	return b
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Eq reports whether a == b.
func (a Amount) Eq(b Amount) bool { return a.v.Eq(&b.v) }

// Lt reports whether a < b.
func (a Amount) Lt(b Amount) bool { return a.v.Lt(&b.v) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// Big returns a copy as a big.Int.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// Uint64 returns the low 64 bits and whether the value fits.
func (a Amount) Uint64() (uint64, bool) { return a.v.Uint64(), a.v.IsUint64() }

// Bytes16 returns the 16-byte big-endian encoding.
func (a Amount) Bytes16() []byte {
	b32 := a.v.Bytes32()
	out := make([]byte, 16)
	copy(out, b32[16:])
	return out
}

// MarshalJSON encodes the amount as a decimal string, the host's U128 format.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
		}
	} else {
		s = string(data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
