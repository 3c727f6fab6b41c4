package ledger

import (
	"fmt"
	"slices"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/revshare"
	"github.com/bitfsorg/sharepool-go/types"
)

// Share token metadata.
const (
	MetadataSpec   = "ft-1.0.0"
	MetadataName   = "Sharepool Reward Share"
	MetadataSymbol = "SHARE"
	Decimals       = 24
)

// StorageBalanceTotal is the fixed storage balance reported for every account.
var StorageBalanceTotal = amount.MustParse("50000000000000000000000")

// Metadata is the NEP-148 token metadata.
type Metadata struct {
	Spec          string  `json:"spec"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Icon          *string `json:"icon"`
	Reference     *string `json:"reference"`
	ReferenceHash *string `json:"reference_hash"`
	Decimals      uint8   `json:"decimals"`
}

// StorageBalance is the NEP-145 storage balance of an account.
type StorageBalance struct {
	Total     amount.Amount `json:"total"`
	Available amount.Amount `json:"available"`
}

// StorageBalanceBounds is the NEP-145 storage bounds.
type StorageBalanceBounds struct {
	Min amount.Amount  `json:"min"`
	Max *amount.Amount `json:"max"`
}

// TotalSupply returns the shares outstanding.
func (l *Ledger) TotalSupply() amount.Amount { return l.state.TotalShares }

// BalanceOf returns the shares held by account.
func (l *Ledger) BalanceOf(account types.AccountID) amount.Amount { return l.state.Balance(account) }

// WhitelistedTokens returns the deposit whitelist in order.
func (l *Ledger) WhitelistedTokens() []types.AccountID { return slices.Clone(l.state.Whitelist) }

// UndistributedRewards returns the reward pool in pool order.
func (l *Ledger) UndistributedRewards() []TokenAmount { return l.state.Rewards.Entries() }

// Deposits returns the pending deposits in arrival order.
func (l *Ledger) Deposits() []TokenAmount { return l.state.Deposits.Entries() }

// Accounts returns every registered holder ordered by account id.
func (l *Ledger) Accounts() []revshare.Entry { return entries(l.state) }

// Metadata returns the share token metadata.
func (l *Ledger) Metadata() Metadata {
	return Metadata{Spec: MetadataSpec, Name: MetadataName, Symbol: MetadataSymbol, Decimals: Decimals}
}

// StorageBalanceBounds reports that no storage deposit is needed.
func (l *Ledger) StorageBalanceBounds() StorageBalanceBounds {
	return StorageBalanceBounds{Min: amount.Zero}
}

// StorageBalanceOf reports a fixed balance for any account.
func (l *Ledger) StorageBalanceOf(types.AccountID) *StorageBalance {
	return &StorageBalance{Total: StorageBalanceTotal, Available: amount.Zero}
}

// Registry returns a snapshot of the share registry. Shares of burns
// waiting on a badge lookup are still listed under their burner.
func (l *Ledger) Registry() (*revshare.RegistryState, error) {
	held, err := heldEntries(l.state)
	if err != nil {
		return nil, err
	}
	return &revshare.RegistryState{
		Version:     l.state.Version,
		TotalShares: l.state.TotalShares,
		Entries:     held,
	}, nil
}

// CheckConservation reports whether every share of the supply is held by
// an account or by a burn in flight.
func (l *Ledger) CheckConservation() error { return checkConservation(l.state) }

// ImportRegistry replaces every account balance and the total supply with
// the snapshot. The snapshot must conserve shares, and no burn or transfer
// call may be waiting on its continuation.
func (l *Ledger) ImportRegistry(reg *revshare.RegistryState) error {
	return l.update("import", func(tx *txn) error {
		if n := len(tx.st.PendingBurns) + len(tx.st.PendingTransfers); n > 0 {
			return fmt.Errorf("%w: %d pending", ErrContinuationsPending, n)
		}
		if err := revshare.ValidateShareConservation(reg.Entries, reg.TotalShares); err != nil {
			return err
		}
		accounts := make(map[types.AccountID]amount.Amount, len(reg.Entries)+1)
		for _, e := range reg.Entries {
			if err := requireAccount(e.Account); err != nil {
				return err
			}
			if _, dup := accounts[e.Account]; dup {
				return fmt.Errorf("%w: duplicate account %s", revshare.ErrInvalidRegistryData, e.Account)
			}
			accounts[e.Account] = e.Shares
		}
		if _, ok := accounts[l.cfg.Owner]; !ok {
			accounts[l.cfg.Owner] = amount.Zero
		}
		tx.st.Accounts = accounts
		tx.st.TotalShares = reg.TotalShares
		tx.st.Version = max(tx.st.Version, reg.Version)
		return nil
	})
}
