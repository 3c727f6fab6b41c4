package types

import "fmt"

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// AccountID names an account on the host chain (a user, a token contract,
// a registry or this ledger itself).
type AccountID string

// String returns the account id as a plain string.
func (a AccountID) String() string { return string(a) }

// Validate checks the host naming rules: 2-64 characters of lowercase
// alphanumerics, with '-', '_' and '.' allowed only between alphanumerics.
func (a AccountID) Validate() error {
	s := string(a)
	if len(s) < minAccountIDLen || len(s) > maxAccountIDLen {
		return fmt.Errorf("%w: %q has length %d", ErrInvalidAccountID, s, len(s))
	}
	prevSeparator := true // a leading separator is rejected
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSeparator = false
		case c == '-' || c == '_' || c == '.':
			if prevSeparator {
				return fmt.Errorf("%w: %q has a misplaced separator at %d", ErrInvalidAccountID, s, i)
			}
			prevSeparator = true
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidAccountID, s, c)
		}
	}
	if prevSeparator {
		return fmt.Errorf("%w: %q ends with a separator", ErrInvalidAccountID, s)
	}
	return nil
}
