package ledger

import (
	"fmt"
	"maps"
	"slices"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/revshare"
)

// Migration is a one-shot state patch. It runs once, when the state version
// is below Version, and bumps the version to Version.
type Migration struct {
	Version uint32
	Name    string
	Apply   func(p *Patch) error
}

// Patch is the view of the ledger a migration may change.
type Patch struct {
	State  *State
	Config Config
	tx     *txn
}

// Emit records an event, published if the migration run commits.
func (p *Patch) Emit(e Event) { p.tx.emit(e) }

// MigrationReport lists what a Migrate call applied.
type MigrationReport struct {
	From    uint32
	To      uint32
	Applied []string
}

// Migrate applies every pending migration in version order. Share
// conservation must hold afterwards or nothing is applied. Running it again
// with no newer migrations is a no-op.
func (l *Ledger) Migrate(env Env) (MigrationReport, error) {
	var rep MigrationReport
	err := l.update("migrate", func(tx *txn) error {
		if err := l.requirePrivate(env); err != nil {
			return err
		}
		rep = MigrationReport{From: tx.st.Version, To: tx.st.Version}
		for _, m := range l.cfg.Migrations {
			if m.Version <= tx.st.Version {
				continue
			}
			p := &Patch{State: tx.st, Config: l.cfg, tx: tx}
			if err := m.Apply(p); err != nil {
				return fmt.Errorf("migration %d %q: %w", m.Version, m.Name, err)
			}
			tx.st.Version = m.Version
			rep.To = m.Version
			rep.Applied = append(rep.Applied, m.Name)
		}
		return checkConservation(tx.st)
	})
	if err == nil && len(rep.Applied) > 0 {
		l.log.Info("state migrated", "from", rep.From, "to", rep.To, "applied", rep.Applied)
	}
	return rep, err
}

// CorrectOwnerShares returns a migration that lowers the owner's balance by
// delta, re-issuing the owner's holding as a burn of the old balance and a
// mint of the corrected one.
func CorrectOwnerShares(version uint32, delta amount.Amount) Migration {
	return Migration{
		Version: version,
		Name:    "correct-owner-shares",
		Apply: func(p *Patch) error {
			owner := p.Config.Owner
			old := p.State.Balance(owner)
			corrected, err := old.Sub(delta)
			if err != nil {
				return arith(err)
			}
			p.Emit(Event{Kind: EventBurn, Owner: owner, Amount: old})
			p.State.Accounts[owner] = corrected
			p.Emit(Event{Kind: EventMint, Owner: owner, Amount: corrected})
			return nil
		},
	}
}

func entries(st *State) []revshare.Entry {
	ids := st.AccountIDs()
	out := make([]revshare.Entry, len(ids))
	for i, id := range ids {
		out[i] = revshare.Entry{Account: id, Shares: st.Accounts[id]}
	}
	return out
}

// heldEntries is entries with the shares of in-flight burns folded back into
// their burners. Those shares stay in the supply until the burn finishes.
func heldEntries(st *State) ([]revshare.Entry, error) {
	if len(st.PendingBurns) == 0 {
		return entries(st), nil
	}
	held := maps.Clone(st.Accounts)
	for _, pb := range st.PendingBurns {
		sum, err := held[pb.Account].Add(pb.Shares)
		if err != nil {
			return nil, arith(err)
		}
		held[pb.Account] = sum
	}
	ids := slices.Sorted(maps.Keys(held))
	out := make([]revshare.Entry, len(ids))
	for i, id := range ids {
		out[i] = revshare.Entry{Account: id, Shares: held[id]}
	}
	return out, nil
}

// checkConservation verifies that held shares sum to the total supply.
func checkConservation(st *State) error {
	held, err := heldEntries(st)
	if err != nil {
		return err
	}
	return arith(revshare.ValidateShareConservation(held, st.TotalShares))
}
