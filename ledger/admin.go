package ledger

import (
	"errors"
	"fmt"
	"slices"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// ErrEmptyCode is returned by Upgrade when no code is supplied.
var ErrEmptyCode = classed(ErrPrecondition, "ledger: no code supplied")

// WhitelistAdd appends token to the deposit whitelist. Duplicates are not
// rejected; removal drops the first match.
func (l *Ledger) WhitelistAdd(env Env, token types.AccountID) error {
	return l.update("whitelist_add_token", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		if err := requireAccount(token); err != nil {
			return err
		}
		tx.st.Whitelist = append(tx.st.Whitelist, token)
		return nil
	})
}

// WhitelistRemove removes the first whitelist entry equal to token.
func (l *Ledger) WhitelistRemove(env Env, token types.AccountID) error {
	return l.update("whitelist_remove_token", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		i := slices.Index(tx.st.Whitelist, token)
		if i < 0 {
			return fmt.Errorf("%w: %s not in whitelist", ErrTokenNotFound, token)
		}
		tx.st.Whitelist = slices.Delete(tx.st.Whitelist, i, i+1)
		return nil
	})
}

// Withdraw takes amt of token back out of the pending deposits and returns
// the transfer to the owner.
func (l *Ledger) Withdraw(env Env, token types.AccountID, amt amount.Amount) (TokenTransfer, error) {
	var t TokenTransfer
	err := l.update("withdraw", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		if err := requirePositive(amt); err != nil {
			return err
		}
		if err := takeFrom(&tx.st.Deposits, token, amt); err != nil {
			return err
		}
		t = TokenTransfer{Token: token, Receiver: l.cfg.Owner, Amount: amt}
		return nil
	})
	return t, err
}

// WithdrawReward takes amt of token out of the reward pool and returns the
// transfer to the owner.
func (l *Ledger) WithdrawReward(env Env, token types.AccountID, amt amount.Amount) (TokenTransfer, error) {
	var t TokenTransfer
	err := l.update("withdraw_reward", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		if err := requirePositive(amt); err != nil {
			return err
		}
		if err := takeFrom(&tx.st.Rewards, token, amt); err != nil {
			return err
		}
		t = TokenTransfer{Token: token, Receiver: l.cfg.Owner, Amount: amt}
		return nil
	})
	return t, err
}

// RemoveReward drops the whole pool entry for token and returns the transfer
// of its balance to the owner.
func (l *Ledger) RemoveReward(env Env, token types.AccountID) (TokenTransfer, error) {
	var t TokenTransfer
	err := l.update("remove_reward", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		amt, ok := tx.st.Rewards.Delete(token)
		if !ok || amt.IsZero() {
			return fmt.Errorf("%w: no reward for %s", ErrTokenNotFound, token)
		}
		t = TokenTransfer{Token: token, Receiver: l.cfg.Owner, Amount: amt}
		return nil
	})
	return t, err
}

// Upgrade returns the deploy action for code. With migrate set the host
// calls Migrate once the new code is in place.
func (l *Ledger) Upgrade(env Env, code []byte, migrate bool) (DeployCode, error) {
	var d DeployCode
	err := l.update("upgrade", func(tx *txn) error {
		if err := l.requireOwner(env); err != nil {
			return err
		}
		if len(code) == 0 {
			return ErrEmptyCode
		}
		d = DeployCode{Code: code, Hash: bsvhash.Sha256(code), Migrate: migrate}
		tx.st.CodeHash = d.Hash
		return nil
	})
	if err == nil {
		l.log.Info("code upgrade scheduled", "hash", fmt.Sprintf("%x", d.Hash), "migrate", migrate)
	}
	return d, err
}

// StorageDeposit is not supported; shares need no storage registration.
func (l *Ledger) StorageDeposit(Env) error { return ErrUnimplemented }

// StorageWithdraw is not supported.
func (l *Ledger) StorageWithdraw(Env) error { return ErrUnimplemented }

// StorageUnregister is not supported.
func (l *Ledger) StorageUnregister(Env) error { return ErrUnimplemented }

// takeFrom subtracts amt from m[token], deleting the entry at zero.
func takeFrom(m *TokenMap, token types.AccountID, amt amount.Amount) error {
	cur, ok := m.Get(token)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, token)
	}
	left, err := cur.Sub(amt)
	if err != nil {
		if errors.Is(err, amount.ErrUnderflow) {
			return arith(fmt.Errorf("%s holds %s, requested %s: %w", token, cur, amt, err))
		}
		return arith(err)
	}
	if left.IsZero() {
		m.Delete(token)
	} else {
		m.Set(token, left)
	}
	return nil
}
