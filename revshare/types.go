package revshare

import (
	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// Entry is a shareholder's record in the registry.
type Entry struct {
	Account types.AccountID // holder
	Shares  amount.Amount   // number of shares held
}

// RegistryState is a point-in-time snapshot of the share registry.
type RegistryState struct {
	Version     uint32        // ledger state version the snapshot was taken at
	TotalShares amount.Amount // total shares outstanding
	Entries     []Entry       // holders, ordered by account id
}

// FindEntry returns the index and entry for the given account, or -1 if not found.
func (s *RegistryState) FindEntry(account types.AccountID) (int, *Entry) {
	for i := range s.Entries {
		if s.Entries[i].Account == account {
			return i, &s.Entries[i]
		}
	}
	return -1, nil
}

// PoolEntry is the undistributed balance of one reward token.
type PoolEntry struct {
	Token  types.AccountID
	Amount amount.Amount
}

// Distribution is a single payout of one reward token.
type Distribution struct {
	Token  types.AccountID
	Amount amount.Amount
}
