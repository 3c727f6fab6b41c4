package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// TokenAmount pairs a token id with an amount. It encodes as a
// [token_id, amount] JSON tuple.
type TokenAmount struct {
	Token  types.AccountID
	Amount amount.Amount
}

// MarshalJSON encodes the pair as a two-element array.
func (t TokenAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Token, t.Amount})
}

// UnmarshalJSON decodes a two-element array.
func (t *TokenAmount) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("ledger: token amount tuple has %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &t.Token); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &t.Amount)
}

// TokenMap is a token → amount map that iterates in insertion order.
type TokenMap struct {
	order  []types.AccountID
	values map[types.AccountID]amount.Amount
}

// NewTokenMap builds a map from entries, keeping their order.
// Later duplicates overwrite earlier values in place.
func NewTokenMap(entries ...TokenAmount) TokenMap {
	var m TokenMap
	for _, e := range entries {
		m.Set(e.Token, e.Amount)
	}
	return m
}

// Get returns the amount for token.
func (m *TokenMap) Get(token types.AccountID) (amount.Amount, bool) {
	v, ok := m.values[token]
	return v, ok
}

// Set stores amount for token, appending token if it is new.
func (m *TokenMap) Set(token types.AccountID, amt amount.Amount) {
	if m.values == nil {
		m.values = make(map[types.AccountID]amount.Amount)
	}
	if _, ok := m.values[token]; !ok {
		m.order = append(m.order, token)
	}
	m.values[token] = amt
}

// Delete removes token and returns its previous amount.
func (m *TokenMap) Delete(token types.AccountID) (amount.Amount, bool) {
	v, ok := m.values[token]
	if !ok {
		return amount.Zero, false
	}
	delete(m.values, token)
	m.order = slices.DeleteFunc(m.order, func(t types.AccountID) bool { return t == token })
	return v, true
}

// Len returns the number of entries.
func (m *TokenMap) Len() int { return len(m.order) }

// Entries returns the entries in insertion order.
func (m *TokenMap) Entries() []TokenAmount {
	out := make([]TokenAmount, 0, len(m.order))
	for _, t := range m.order {
		out = append(out, TokenAmount{Token: t, Amount: m.values[t]})
	}
	return out
}

// Clear removes every entry.
func (m *TokenMap) Clear() {
	m.order = nil
	m.values = nil
}

// Clone returns an independent copy.
func (m *TokenMap) Clone() TokenMap {
	return TokenMap{order: slices.Clone(m.order), values: maps.Clone(m.values)}
}

// MarshalJSON encodes the map as an ordered list of tuples.
func (m TokenMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Entries())
}

// UnmarshalJSON decodes an ordered list of tuples.
func (m *TokenMap) UnmarshalJSON(data []byte) error {
	var entries []TokenAmount
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = NewTokenMap(entries...)
	return nil
}

// PendingBurn is a burn whose balance was removed and whose badge lookup
// has not yet returned.
type PendingBurn struct {
	Account types.AccountID `json:"account_id"`
	Shares  amount.Amount   `json:"shares"`
}

// PendingTransfer is a transfer-with-callback awaiting the receiver's report.
type PendingTransfer struct {
	Sender   types.AccountID `json:"sender_id"`
	Receiver types.AccountID `json:"receiver_id"`
	Amount   amount.Amount   `json:"amount"`
}

// State is the persistent ledger aggregate.
type State struct {
	Accounts         map[types.AccountID]amount.Amount       `json:"accounts"`
	Rewards          TokenMap                                `json:"rewards"`
	Deposits         TokenMap                                `json:"deposits"`
	TotalShares      amount.Amount                           `json:"total_shares"`
	Whitelist        []types.AccountID                       `json:"whitelist"`
	Version          uint32                                  `json:"version"`
	CodeHash         []byte                                  `json:"code_hash,omitempty"`
	Nonce            uint64                                  `json:"nonce"`
	PendingBurns     map[types.CorrelationID]PendingBurn     `json:"pending_burns,omitempty"`
	PendingTransfers map[types.CorrelationID]PendingTransfer `json:"pending_transfers,omitempty"`
}

// NewState returns the initial state: the owner registered with zero shares.
func NewState(owner types.AccountID, whitelist []types.AccountID) *State {
	return &State{
		Accounts:         map[types.AccountID]amount.Amount{owner: amount.Zero},
		Whitelist:        slices.Clone(whitelist),
		PendingBurns:     make(map[types.CorrelationID]PendingBurn),
		PendingTransfers: make(map[types.CorrelationID]PendingTransfer),
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Accounts = maps.Clone(s.Accounts)
	if c.Accounts == nil {
		c.Accounts = make(map[types.AccountID]amount.Amount)
	}
	c.Rewards = s.Rewards.Clone()
	c.Deposits = s.Deposits.Clone()
	c.Whitelist = slices.Clone(s.Whitelist)
	c.CodeHash = bytes.Clone(s.CodeHash)
	c.PendingBurns = maps.Clone(s.PendingBurns)
	if c.PendingBurns == nil {
		c.PendingBurns = make(map[types.CorrelationID]PendingBurn)
	}
	c.PendingTransfers = maps.Clone(s.PendingTransfers)
	if c.PendingTransfers == nil {
		c.PendingTransfers = make(map[types.CorrelationID]PendingTransfer)
	}
	return &c
}

// Balance returns the shares held by account.
func (s *State) Balance(account types.AccountID) amount.Amount {
	return s.Accounts[account]
}

// AccountIDs returns every registered account in ascending order.
func (s *State) AccountIDs() []types.AccountID {
	return slices.Sorted(maps.Keys(s.Accounts))
}

// Whitelisted reports whether token may be deposited.
func (s *State) Whitelisted(token types.AccountID) bool {
	return slices.Contains(s.Whitelist, token)
}

func (s *State) credit(account types.AccountID, amt amount.Amount) error {
	bal, err := s.Accounts[account].Add(amt)
	if err != nil {
		return arith(fmt.Errorf("credit %s: %w", account, err))
	}
	s.Accounts[account] = bal
	return nil
}

func (s *State) debit(account types.AccountID, amt amount.Amount) error {
	bal, err := s.Accounts[account].Sub(amt)
	if err != nil {
		return arith(fmt.Errorf("debit %s: %w", account, err))
	}
	s.Accounts[account] = bal
	return nil
}

// move transfers shares between accounts, registering the receiver if needed.
func (s *State) move(from, to types.AccountID, amt amount.Amount) error {
	if err := s.debit(from, amt); err != nil {
		return err
	}
	return s.credit(to, amt)
}
