package types

import (
	"encoding/hex"
	"fmt"
)

// CorrelationID ties an asynchronous continuation to the synchronous phase
// that scheduled it.
type CorrelationID [32]byte

// String returns the id as lowercase hex.
func (c CorrelationID) String() string { return hex.EncodeToString(c[:]) }

// IsZero reports whether the id is unset.
func (c CorrelationID) IsZero() bool { return c == CorrelationID{} }

// MarshalText implements encoding.TextMarshaler.
func (c CorrelationID) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CorrelationID) UnmarshalText(text []byte) error {
	id, err := ParseCorrelationID(string(text))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// ParseCorrelationID decodes a 64-character hex id.
func ParseCorrelationID(s string) (CorrelationID, error) {
	var id CorrelationID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %w", ErrInvalidCorrelationID, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCorrelationID, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}
