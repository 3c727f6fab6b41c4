package ledger

import (
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/revshare"
	"github.com/bitfsorg/sharepool-go/types"
)

// BurnGas returns the prepaid gas a burn needs with n reward tokens pooled.
func BurnGas(n int) types.Gas {
	return GasForBurn.Add(GasForBadgeCheck).Add(GasForFtTransfer.Mul(uint64(n)))
}

// Burn redeems the caller's whole balance. The balance is removed before
// anything else happens. When the badge penalty applies the outcome is
// PhaseCommitted with a BadgeLookup to dispatch, and FinishBurn completes
// the redemption; otherwise payouts are computed here.
func (l *Ledger) Burn(env Env) (BurnOutcome, error) {
	var out BurnOutcome
	err := l.update("burn", func(tx *txn) error {
		if err := requireOneYocto(env); err != nil {
			return err
		}
		if need := BurnGas(tx.st.Rewards.Len()); env.PrepaidGas < need {
			return fmt.Errorf("%w: need %d, attached %d", ErrNotEnoughGas, need, env.PrepaidGas)
		}
		caller := env.Predecessor
		b, ok := tx.st.Accounts[caller]
		if !ok || b.IsZero() {
			return ErrNoBalance
		}
		delete(tx.st.Accounts, caller)

		if l.cfg.Policy.BadgePenalty && caller != l.cfg.Owner {
			id := tx.correlation()
			tx.st.PendingBurns[id] = PendingBurn{Account: caller, Shares: b}
			out = BurnOutcome{
				Phase:   PhaseCommitted,
				Account: caller,
				Shares:  b,
				Lookup:  &BadgeLookup{Registry: l.cfg.Rewarder, Account: caller, Correlation: id},
			}
			return nil
		}

		var err error
		out, err = tx.redeem(caller, b, nil, false)
		return err
	})
	return out, err
}

// FinishBurn continues a burn with the badge registry's answer. Without a
// badge, 1/PenaltyDivisor of the shares goes back to the owner before
// payouts. A failed lookup returns the shares to the caller and burns nothing.
func (l *Ledger) FinishBurn(env Env, id types.CorrelationID, result BadgeResult) (BurnOutcome, error) {
	var out BurnOutcome
	err := l.update("on_burn", func(tx *txn) error {
		if err := l.requirePrivate(env); err != nil {
			return err
		}
		pb, ok := tx.st.PendingBurns[id]
		if !ok {
			return fmt.Errorf("%w: burn %s", ErrUnknownContinuation, id)
		}
		delete(tx.st.PendingBurns, id)

		if result.Failed {
			l.log.Warn("badge lookup failed, restoring balance", "account", pb.Account, "shares", pb.Shares)
			if err := tx.st.credit(pb.Account, pb.Shares); err != nil {
				return err
			}
			out = BurnOutcome{Phase: PhaseFinalized, Account: pb.Account, Shares: pb.Shares, Restored: true}
			return nil
		}

		var err error
		out, err = tx.redeem(pb.Account, pb.Shares, result.Badge, result.Badge == nil)
		return err
	})
	return out, err
}

// redeem pays out b shares of caller against the current pool and retires them.
func (tx *txn) redeem(caller types.AccountID, b amount.Amount, badge *Badge, penalize bool) (BurnOutcome, error) {
	cfg := &tx.l.cfg
	out := BurnOutcome{Phase: PhaseFinalized, Account: caller, Shares: b, Penalty: amount.Zero}

	eff := b
	if penalize {
		penalty, err := b.Div(amount.New(cfg.Policy.PenaltyDivisor))
		if err != nil {
			return out, arith(err)
		}
		if !penalty.IsZero() {
			if eff, err = b.Sub(penalty); err != nil {
				return out, arith(err)
			}
			if err := tx.st.credit(cfg.Owner, penalty); err != nil {
				return out, err
			}
			tx.emit(Event{Kind: EventTransfer, From: caller, To: cfg.Owner, Amount: penalty})
			out.Penalty = penalty
		}
	}

	pool := make([]revshare.PoolEntry, 0, tx.st.Rewards.Len())
	for _, r := range tx.st.Rewards.Entries() {
		pool = append(pool, revshare.PoolEntry{Token: r.Token, Amount: r.Amount})
	}
	payouts, err := revshare.Payouts(eff, tx.st.TotalShares, pool)
	if err != nil {
		return out, arith(err)
	}

	for i, p := range payouts {
		left, err := pool[i].Amount.Sub(p.Amount)
		if err != nil {
			return out, arith(err)
		}
		if left.IsZero() {
			tx.st.Rewards.Delete(p.Token)
		} else {
			tx.st.Rewards.Set(p.Token, left)
		}
		if p.Amount.IsZero() {
			continue
		}
		t := TokenTransfer{Token: p.Token, Receiver: caller, Amount: p.Amount}
		if badge != nil && p.Token == cfg.ScoreToken && cfg.Rewarder != "" {
			score, err := p.Amount.Mul(amount.New(cfg.Policy.ScoreMultiplier))
			if err != nil {
				return out, arith(err)
			}
			t.Score = &ScoreReport{Registry: cfg.Rewarder, BadgeID: badge.ID, Amount: score}
		}
		out.Transfers = append(out.Transfers, t)
	}

	total, err := tx.st.TotalShares.Sub(eff)
	if err != nil {
		return out, arith(err)
	}
	tx.st.TotalShares = total
	tx.emit(Event{Kind: EventBurn, Owner: caller, Amount: eff})
	return out, nil
}

// SimulateBurn returns what burning shares would pay out now, per reward
// token in pool order. It uses the same formula as Burn without a penalty.
func (l *Ledger) SimulateBurn(shares amount.Amount) ([]TokenAmount, error) {
	entries := l.state.Rewards.Entries()
	out := make([]TokenAmount, len(entries))
	if shares.IsZero() {
		for i, r := range entries {
			out[i] = TokenAmount{Token: r.Token, Amount: amount.Zero}
		}
		return out, nil
	}
	pool := make([]revshare.PoolEntry, len(entries))
	for i, r := range entries {
		pool[i] = revshare.PoolEntry{Token: r.Token, Amount: r.Amount}
	}
	payouts, err := revshare.Payouts(shares, l.state.TotalShares, pool)
	if err != nil {
		return nil, err
	}
	for i, p := range payouts {
		out[i] = TokenAmount{Token: p.Token, Amount: p.Amount}
	}
	return out, nil
}
