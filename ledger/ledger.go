// Package ledger implements share-based reward distribution: tokens are
// pooled, shares are minted against the pool, and burning shares pays out a
// pro-rata slice of every pooled token.
package ledger

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// Gas budgets for outbound calls.
const (
	GasForBurn            = 5 * types.TGas
	GasForBadgeCheck      = 5 * types.TGas
	GasForFtTransfer      = 10 * types.TGas
	GasForFtTransferCall  = 60 * types.TGas
	GasForResolveTransfer = 5 * types.TGas
)

// OneYocto is the attached deposit required by user-facing mutations.
var OneYocto = amount.New(1)

// Env describes the caller of one ledger operation.
type Env struct {
	Predecessor types.AccountID
	Deposit     amount.Amount
	PrepaidGas  types.Gas
}

// Ledger is the aggregate root. It is not safe for concurrent use; the host
// serializes every call.
type Ledger struct {
	cfg   Config
	state *State
	sink  EventSink
	log   *slog.Logger
}

// New creates a ledger over state. A nil state starts a fresh ledger with
// the owner registered and the configured whitelist.
func New(cfg Config, state *State) (*Ledger, error) {
	if cfg.Policy.PenaltyDivisor == 0 {
		cfg.Policy.PenaltyDivisor = 5
	}
	if cfg.Policy.ScoreMultiplier == 0 {
		cfg.Policy.ScoreMultiplier = 3
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Migrations = slices.Clone(cfg.Migrations)
	slices.SortFunc(cfg.Migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	if state == nil {
		state = NewState(cfg.Owner, cfg.Whitelist)
	} else {
		state = state.Clone()
	}
	if _, ok := state.Accounts[cfg.Owner]; !ok {
		state.Accounts[cfg.Owner] = amount.Zero
	}

	l := &Ledger{cfg: cfg, state: state, sink: cfg.Sink, log: cfg.Logger}
	if l.sink == nil {
		l.sink = discardSink{}
	}
	if l.log == nil {
		l.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l.log = l.log.With("contract", cfg.ContractID)
	return l, nil
}

// Config returns the resolved configuration.
func (l *Ledger) Config() Config { return l.cfg }

// State returns a copy of the current state.
func (l *Ledger) State() *State { return l.state.Clone() }

// Restore replaces the current state with a copy of s. It is how a caller
// undoes operations whose effects it failed to persist. No events are emitted.
func (l *Ledger) Restore(s *State) { l.state = s.Clone() }

// SetSink replaces the event sink.
func (l *Ledger) SetSink(sink EventSink) {
	if sink == nil {
		sink = discardSink{}
	}
	l.sink = sink
}

// txn is one atomic operation over a cloned state.
type txn struct {
	l      *Ledger
	st     *State
	events []Event
}

func (tx *txn) emit(e Event) { tx.events = append(tx.events, e) }

// correlation derives a fresh continuation id from the contract id and nonce.
func (tx *txn) correlation() types.CorrelationID {
	tx.st.Nonce++
	buf := make([]byte, 0, len(tx.l.cfg.ContractID)+8)
	buf = append(buf, tx.l.cfg.ContractID...)
	buf = binary.BigEndian.AppendUint64(buf, tx.st.Nonce)
	return types.CorrelationID(chainhash.DoubleHashH(buf))
}

// update runs fn on a copy of the state and commits it only if fn succeeds.
func (l *Ledger) update(op string, fn func(tx *txn) error) error {
	tx := &txn{l: l, st: l.state.Clone()}
	if err := fn(tx); err != nil {
		l.log.Debug("operation rejected", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	l.state = tx.st
	for _, e := range tx.events {
		l.sink.Emit(e)
	}
	l.log.Debug("operation committed", "op", op, "events", len(tx.events), "total_shares", l.state.TotalShares)
	return nil
}

func (l *Ledger) requireOwner(env Env) error {
	if env.Predecessor != l.cfg.Owner {
		return ErrNotOwner
	}
	return nil
}

func (l *Ledger) requirePrivate(env Env) error {
	if env.Predecessor != l.cfg.ContractID {
		return ErrPrivateMethod
	}
	return nil
}

func requireOneYocto(env Env) error {
	if !env.Deposit.Eq(OneYocto) {
		return fmt.Errorf("%w: attached %s", ErrRequiresOneYocto, env.Deposit)
	}
	return nil
}

func requirePositive(amt amount.Amount) error {
	if amt.IsZero() {
		return ErrZeroAmount
	}
	return nil
}

func requireAccount(id types.AccountID) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccountID, err)
	}
	return nil
}
