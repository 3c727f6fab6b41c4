package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// RefundMemo marks the transfer event emitted when a receiver returns unused shares.
const RefundMemo = "refund"

// Transfer hands out amt shares from the distributor to receiver. Only the
// configured distributor may call it; Policy has no knob for this.
func (l *Ledger) Transfer(env Env, receiver types.AccountID, amt amount.Amount, memo string) error {
	return l.update("ft_transfer", func(tx *txn) error {
		if err := requireOneYocto(env); err != nil {
			return err
		}
		if env.Predecessor != l.cfg.Distributor {
			return ErrNotDistributor
		}
		if err := requireAccount(receiver); err != nil {
			return err
		}
		if err := requirePositive(amt); err != nil {
			return err
		}
		if err := tx.st.move(env.Predecessor, receiver, amt); err != nil {
			return err
		}
		tx.emit(Event{Kind: EventTransfer, From: env.Predecessor, To: receiver, Amount: amt, Memo: memo})
		return nil
	})
}

// TransferCall moves amt shares from the owner to receiver and returns the
// ft_on_transfer notification to dispatch. The receiver's report is settled
// by ResolveTransfer.
func (l *Ledger) TransferCall(env Env, receiver types.AccountID, amt amount.Amount, memo, msg string) (ReceiverCall, error) {
	var call ReceiverCall
	err := l.update("ft_transfer_call", func(tx *txn) error {
		if err := requireOneYocto(env); err != nil {
			return err
		}
		if env.PrepaidGas <= GasForFtTransferCall {
			return fmt.Errorf("%w: more than %d gas is required", ErrNotEnoughGas, GasForFtTransferCall)
		}
		if err := l.requireOwner(env); err != nil {
			return err
		}
		if err := requireAccount(receiver); err != nil {
			return err
		}
		if err := requirePositive(amt); err != nil {
			return err
		}
		if err := tx.st.move(env.Predecessor, receiver, amt); err != nil {
			return err
		}
		tx.emit(Event{Kind: EventTransfer, From: env.Predecessor, To: receiver, Amount: amt, Memo: memo})

		id := tx.correlation()
		tx.st.PendingTransfers[id] = PendingTransfer{Sender: env.Predecessor, Receiver: receiver, Amount: amt}
		call = ReceiverCall{Receiver: receiver, Sender: env.Predecessor, Amount: amt, Msg: msg, Correlation: id}
		return nil
	})
	return call, err
}

// ResolveTransfer settles a transfer-with-callback. It refunds the unused
// part the receiver reported, capped by what the receiver still holds, and
// returns the amount that stays with the receiver. A report that cannot be
// parsed counts as fully used.
func (l *Ledger) ResolveTransfer(env Env, id types.CorrelationID, result CallResult) (amount.Amount, error) {
	var used amount.Amount
	err := l.update("ft_resolve_transfer", func(tx *txn) error {
		if err := l.requirePrivate(env); err != nil {
			return err
		}
		pt, ok := tx.st.PendingTransfers[id]
		if !ok {
			return fmt.Errorf("%w: transfer %s", ErrUnknownContinuation, id)
		}
		delete(tx.st.PendingTransfers, id)

		unused := unusedAmount(pt.Amount, result)
		if unused.IsZero() {
			used = pt.Amount
			return nil
		}
		if result.Failed {
			l.log.Warn("receiver call failed", "receiver", pt.Receiver, "amount", pt.Amount)
		}

		// the receiver may already have passed the shares on
		refund := amount.Min(tx.st.Balance(pt.Receiver), unused)
		if !refund.IsZero() {
			if err := tx.st.move(pt.Receiver, pt.Sender, refund); err != nil {
				return err
			}
			tx.emit(Event{Kind: EventTransfer, From: pt.Receiver, To: pt.Sender, Amount: refund, Memo: RefundMemo})
		}

		var err error
		if used, err = pt.Amount.Sub(refund); err != nil {
			return arith(err)
		}
		return nil
	})
	return used, err
}

func unusedAmount(sent amount.Amount, result CallResult) amount.Amount {
	if result.Failed {
		return sent
	}
	var reported amount.Amount
	if err := json.Unmarshal(result.Value, &reported); err != nil {
		return amount.Zero
	}
	return amount.Min(sent, reported)
}
