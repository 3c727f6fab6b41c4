package types

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountID_Validate(t *testing.T) {
	tests := []struct {
		id    AccountID
		valid bool
	}{
		{"alice.near", true},
		{"dao.sputnik-dao.near", true},
		{"a_b", true},
		{"ab", true},
		{"a", false},
		{"", false},
		{"Alice.near", false},
		{".alice", false},
		{"alice.", false},
		{"alice..near", false},
		{"alice@near", false},
		{AccountID(strings.Repeat("a", 64)), true},
		{AccountID(strings.Repeat("a", 65)), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			err := tt.id.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAccountID)
			}
		})
	}
}

func TestGas_Saturating(t *testing.T) {
	assert.Equal(t, 15*TGas, (5 * TGas).Add(10*TGas))
	assert.Equal(t, Gas(math.MaxUint64), Gas(math.MaxUint64-1).Add(5))
	assert.Equal(t, 30*TGas, (10 * TGas).Mul(3))
	assert.Equal(t, Gas(math.MaxUint64), Gas(math.MaxUint64/2).Mul(3))
	assert.Equal(t, Gas(0), (5 * TGas).Sub(6*TGas))
}

func TestCorrelationID_TextRoundTrip(t *testing.T) {
	var id CorrelationID
	id[0], id[31] = 0xab, 0x01

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded CorrelationID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
	assert.False(t, decoded.IsZero())

	_, err = ParseCorrelationID("abcd")
	assert.ErrorIs(t, err, ErrInvalidCorrelationID)
	_, err = ParseCorrelationID("zz")
	assert.ErrorIs(t, err, ErrInvalidCorrelationID)
}
