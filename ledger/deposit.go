package ledger

import (
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// OnTransfer records amt of the calling token as a pending deposit from
// sender. The predecessor is the token contract. The whole amount is
// accepted, so the returned unused amount is always zero.
func (l *Ledger) OnTransfer(env Env, sender types.AccountID, amt amount.Amount, msg string) (amount.Amount, error) {
	token := env.Predecessor
	err := l.update("ft_on_transfer", func(tx *txn) error {
		if !l.cfg.allows(l.cfg.Policy.Depositor, sender) {
			return fmt.Errorf("%w: %s", ErrNotDepositor, sender)
		}
		if !tx.st.Whitelisted(token) {
			return fmt.Errorf("%w: %s", ErrTokenNotWhitelisted, token)
		}
		if err := requirePositive(amt); err != nil {
			return err
		}
		cur, _ := tx.st.Deposits.Get(token)
		sum, err := cur.Add(amt)
		if err != nil {
			return arith(err)
		}
		tx.st.Deposits.Set(token, sum)
		return nil
	})
	if err != nil {
		return amount.Zero, err
	}
	l.log.Info("deposit received", "token", token, "sender", sender, "amount", amt, "msg", msg)
	return amount.Zero, nil
}
