package ledger

import (
	"github.com/bitfsorg/sharepool-go/amount"
)

// Mint folds every pending deposit into the reward pool and credits the
// owner with shares new shares. Deposits merge before the supply grows, so
// the new pool is shared by existing and new holders alike.
func (l *Ledger) Mint(env Env, shares amount.Amount) error {
	return l.update("mint", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		bootstrap := l.cfg.Policy.BootstrapMint && tx.st.TotalShares.IsZero() && !shares.IsZero()
		if tx.st.Deposits.Len() == 0 && !bootstrap {
			return ErrNoDeposits
		}

		for _, d := range tx.st.Deposits.Entries() {
			cur, _ := tx.st.Rewards.Get(d.Token)
			sum, err := cur.Add(d.Amount)
			if err != nil {
				return arith(err)
			}
			tx.st.Rewards.Set(d.Token, sum)
		}
		tx.st.Deposits.Clear()

		if shares.IsZero() {
			return nil
		}
		total, err := tx.st.TotalShares.Add(shares)
		if err != nil {
			return arith(err)
		}
		tx.st.TotalShares = total
		if err := tx.st.credit(l.cfg.Owner, shares); err != nil {
			return err
		}
		tx.emit(Event{Kind: EventMint, Owner: l.cfg.Owner, Amount: shares})
		return nil
	})
}
