package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

// Gas for the resolve step of MemToken.ft_transfer_call.
const memResolveGas = 5 * types.TGas

var (
	errInsufficientBalance = errors.New("host: the account doesn't have enough balance")
	errRequiresOneYocto    = errors.New("host: requires attached deposit of exactly 1 yoctoNEAR")
	errInjectedFailure     = errors.New("host: injected failure")
	errPrivate             = errors.New("host: method is private")
)

func decodeArgs(method string, args []byte, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("host: %s: decode args: %w", method, err)
	}
	return nil
}

func jsonValue(v any) (Outcome, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Value: b}, nil
}

// MemToken is an in-memory fungible token speaking ft_transfer,
// ft_transfer_call and ft_balance_of.
type MemToken struct {
	mu       sync.Mutex
	balances map[types.AccountID]amount.Amount
	failTo   map[types.AccountID]bool
}

// NewMemToken creates a token with no balances.
func NewMemToken() *MemToken {
	return &MemToken{
		balances: make(map[types.AccountID]amount.Amount),
		failTo:   make(map[types.AccountID]bool),
	}
}

// Mint credits amt to account directly, for test setup.
func (t *MemToken) Mint(account types.AccountID, amt amount.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, err := t.balances[account].Add(amt)
	if err != nil {
		return fmt.Errorf("host: mint %s: %w", account, err)
	}
	t.balances[account] = bal
	return nil
}

// Balance returns account's balance.
func (t *MemToken) Balance(account types.AccountID) amount.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// FailTransfersTo makes every transfer to account fail.
func (t *MemToken) FailTransfersTo(account types.AccountID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failTo[account] = true
}

type transferArgs struct {
	ReceiverID types.AccountID `json:"receiver_id"`
	Amount     amount.Amount   `json:"amount"`
	Memo       string          `json:"memo,omitempty"`
	Msg        string          `json:"msg,omitempty"`
}

type resolveArgs struct {
	SenderID   types.AccountID `json:"sender_id"`
	ReceiverID types.AccountID `json:"receiver_id"`
	Amount     amount.Amount   `json:"amount"`
}

type onTransferArgs struct {
	SenderID types.AccountID `json:"sender_id"`
	Amount   amount.Amount   `json:"amount"`
	Msg      string          `json:"msg"`
}

type accountArgs struct {
	AccountID types.AccountID `json:"account_id"`
}

// Call implements Contract.
func (t *MemToken) Call(ctx *Context, method string, args []byte) (Outcome, error) {
	switch method {
	case "ft_transfer":
		var a transferArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		if !ctx.Deposit.Eq(amount.New(1)) {
			return Outcome{}, errRequiresOneYocto
		}
		if err := t.move(ctx, ctx.Predecessor, a.ReceiverID, a.Amount, a.Memo); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil

	case "ft_transfer_call":
		var a transferArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		if !ctx.Deposit.Eq(amount.New(1)) {
			return Outcome{}, errRequiresOneYocto
		}
		if err := t.move(ctx, ctx.Predecessor, a.ReceiverID, a.Amount, a.Memo); err != nil {
			return Outcome{}, err
		}
		notify, _ := json.Marshal(onTransferArgs{SenderID: ctx.Predecessor, Amount: a.Amount, Msg: a.Msg})
		resolve, _ := json.Marshal(resolveArgs{SenderID: ctx.Predecessor, ReceiverID: a.ReceiverID, Amount: a.Amount})
		p := NewCall(a.ReceiverID, "ft_on_transfer", notify).
			Then(NewCall(ctx.Current, "ft_resolve_transfer", resolve).WithGas(memResolveGas))
		return Outcome{Return: p}, nil

	case "ft_resolve_transfer":
		if ctx.Predecessor != ctx.Current {
			return Outcome{}, errPrivate
		}
		var a resolveArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		unused := a.Amount
		if len(ctx.PromiseResults) == 1 && ctx.PromiseResults[0].Succeeded() {
			var reported amount.Amount
			if err := json.Unmarshal(ctx.PromiseResults[0].Value, &reported); err == nil {
				unused = amount.Min(a.Amount, reported)
			}
		}
		t.mu.Lock()
		refund := amount.Min(unused, t.balances[a.ReceiverID])
		t.mu.Unlock()
		if !refund.IsZero() {
			if err := t.move(ctx, a.ReceiverID, a.SenderID, refund, "refund"); err != nil {
				return Outcome{}, err
			}
		}
		used, _ := a.Amount.Sub(refund)
		return jsonValue(used)

	case "ft_balance_of":
		var a accountArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		return jsonValue(t.Balance(a.AccountID))

	default:
		return Outcome{}, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
}

func (t *MemToken) move(ctx *Context, from, to types.AccountID, amt amount.Amount, memo string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amt.IsZero() {
		return errors.New("host: the amount should be a positive number")
	}
	if t.failTo[to] {
		return fmt.Errorf("%w: transfer to %s", errInjectedFailure, to)
	}
	fromBal, err := t.balances[from].Sub(amt)
	if err != nil {
		return errInsufficientBalance
	}
	toBal, err := t.balances[to].Add(amt)
	if err != nil {
		return err
	}
	t.balances[from] = fromBal
	t.balances[to] = toBal
	ctx.Log(ledger.Event{Kind: ledger.EventTransfer, From: from, To: to, Amount: amt, Memo: memo}.Log())
	return nil
}

// MemBadgeRegistry answers primary_holder_of and accumulates report_score.
type MemBadgeRegistry struct {
	mu          sync.Mutex
	badges      map[types.AccountID]ledger.Badge
	scores      map[string]amount.Amount
	FailLookups bool
}

// NewMemBadgeRegistry creates an empty registry.
func NewMemBadgeRegistry() *MemBadgeRegistry {
	return &MemBadgeRegistry{
		badges: make(map[types.AccountID]ledger.Badge),
		scores: make(map[string]amount.Amount),
	}
}

// Grant makes badge the primary badge of account.
func (r *MemBadgeRegistry) Grant(account types.AccountID, badge ledger.Badge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges[account] = badge
}

// Score returns the total score reported for badge id.
func (r *MemBadgeRegistry) Score(id string) amount.Amount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scores[id]
}

type reportScoreArgs struct {
	BadgeID string        `json:"badge_id"`
	Amount  amount.Amount `json:"amount"`
}

// Call implements Contract.
func (r *MemBadgeRegistry) Call(ctx *Context, method string, args []byte) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch method {
	case "primary_holder_of":
		if r.FailLookups {
			return Outcome{}, errInjectedFailure
		}
		var a accountArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		b, ok := r.badges[a.AccountID]
		if !ok {
			return Outcome{Value: []byte("null")}, nil
		}
		return jsonValue([2]any{b.ID, b.Score})

	case "report_score":
		var a reportScoreArgs
		if err := decodeArgs(method, args, &a); err != nil {
			return Outcome{}, err
		}
		sum, err := r.scores[a.BadgeID].Add(a.Amount)
		if err != nil {
			return Outcome{}, err
		}
		r.scores[a.BadgeID] = sum
		return Outcome{}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
}

// MemReceiver stands in for a contract receiving shares through
// ft_transfer_call. It reports Unused as the unused amount.
type MemReceiver struct {
	mu       sync.Mutex
	Unused   amount.Amount
	Raw      []byte // when set, returned verbatim instead of Unused
	Fail     bool
	messages []string
}

// Messages returns the msg payloads received so far.
func (m *MemReceiver) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// Call implements Contract.
func (m *MemReceiver) Call(ctx *Context, method string, args []byte) (Outcome, error) {
	if method != "ft_on_transfer" {
		return Outcome{}, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	var a onTransferArgs
	if err := decodeArgs(method, args, &a); err != nil {
		return Outcome{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return Outcome{}, errInjectedFailure
	}
	m.messages = append(m.messages, a.Msg)
	if m.Raw != nil {
		return Outcome{Value: m.Raw}, nil
	}
	return jsonValue(m.Unused)
}

var (
	_ Contract = (*MemToken)(nil)
	_ Contract = (*MemBadgeRegistry)(nil)
	_ Contract = (*MemReceiver)(nil)
)
