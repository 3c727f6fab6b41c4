package revshare

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

const (
	registryMagic      = "SPRG"
	registryHeaderSize = 4 + 4 + 16 + 4 // magic + version(4) + total_shares(16) + num_entries(4)
	entryFixedSize     = 1 + 16         // account_len(1) + shares(16); account bytes follow the length
	maxAccountLen      = math.MaxUint8
)

// SerializeRegistry encodes a RegistryState to binary format.
func SerializeRegistry(state *RegistryState) ([]byte, error) {
	if len(state.Entries) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(state.Entries))
	}
	size := registryHeaderSize
	for _, e := range state.Entries {
		if len(e.Account) > maxAccountLen {
			return nil, fmt.Errorf("%w: account %q too long", ErrInvalidRegistryData, e.Account)
		}
		size += entryFixedSize + len(e.Account)
	}

	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:offset+4], registryMagic)
	offset += 4

	binary.BigEndian.PutUint32(buf[offset:offset+4], state.Version)
	offset += 4

	copy(buf[offset:offset+16], state.TotalShares.Bytes16())
	offset += 16

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(state.Entries)))
	offset += 4

	for _, entry := range state.Entries {
		buf[offset] = byte(len(entry.Account))
		offset++
		offset += copy(buf[offset:], entry.Account)
		copy(buf[offset:offset+16], entry.Shares.Bytes16())
		offset += 16
	}
	return buf, nil
}

// DeserializeRegistry decodes binary data into a RegistryState.
func DeserializeRegistry(data []byte) (*RegistryState, error) {
	if len(data) < registryHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidRegistryData, len(data))
	}
	if string(data[0:4]) != registryMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidRegistryData, data[0:4])
	}
	offset := 4

	state := &RegistryState{}
	state.Version = binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	total, err := amount.FromBytes16(data[offset : offset+16])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegistryData, err)
	}
	state.TotalShares = total
	offset += 16

	numEntries := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	// Every entry needs at least entryFixedSize bytes; reject counts the data cannot hold.
	if numEntries > (len(data)-offset)/entryFixedSize {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrInvalidRegistryData, numEntries, len(data))
	}

	state.Entries = make([]Entry, numEntries)
	for i := 0; i < numEntries; i++ {
		if offset >= len(data) {
			return nil, fmt.Errorf("%w: truncated at entry %d", ErrInvalidRegistryData, i)
		}
		n := int(data[offset])
		offset++
		if offset+n+16 > len(data) {
			return nil, fmt.Errorf("%w: truncated at entry %d", ErrInvalidRegistryData, i)
		}
		state.Entries[i].Account = types.AccountID(data[offset : offset+n])
		offset += n
		shares, err := amount.FromBytes16(data[offset : offset+16])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRegistryData, err)
		}
		state.Entries[i].Shares = shares
		offset += 16
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidRegistryData, len(data)-offset)
	}
	return state, nil
}
