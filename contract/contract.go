// Package contract exposes a ledger as a host contract: it decodes JSON
// arguments, runs the ledger operation and turns the returned effects into
// promises.
package contract

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/bitfsorg/sharepool-go/host"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/metrics"
	"github.com/bitfsorg/sharepool-go/store"
)

type handler func(c *Contract, ctx *host.Context, args []byte) (host.Outcome, error)

// mutating methods commit state after success; views never do.
var (
	mutating = map[string]handler{
		"ft_transfer":            (*Contract).ftTransfer,
		"ft_transfer_call":       (*Contract).ftTransferCall,
		"ft_resolve_transfer":    (*Contract).ftResolveTransfer,
		"ft_on_transfer":         (*Contract).ftOnTransfer,
		"burn":                   (*Contract).burn,
		"on_burn":                (*Contract).onBurn,
		"mint":                   (*Contract).mint,
		"whitelist_add_token":    (*Contract).whitelistAdd,
		"whitelist_remove_token": (*Contract).whitelistRemove,
		"withdraw":               (*Contract).withdraw,
		"withdraw_reward":        (*Contract).withdrawReward,
		"remove_reward":          (*Contract).removeReward,
		"upgrade":                (*Contract).upgrade,
		"upgrade_and_migrate":    (*Contract).upgradeAndMigrate,
		"migrate":                (*Contract).migrate,
		"storage_deposit":        (*Contract).storageDeposit,
		"storage_withdraw":       (*Contract).storageWithdraw,
		"storage_unregister":     (*Contract).storageUnregister,
	}
	views = map[string]handler{
		"ft_total_supply":           (*Contract).ftTotalSupply,
		"ft_balance_of":             (*Contract).ftBalanceOf,
		"ft_metadata":               (*Contract).ftMetadata,
		"get_whitelisted_tokens":    (*Contract).getWhitelistedTokens,
		"get_undistributed_rewards": (*Contract).getUndistributedRewards,
		"get_deposits":              (*Contract).getDeposits,
		"get_accounts":              (*Contract).getAccounts,
		"simulate_burn":             (*Contract).simulateBurn,
		"storage_balance_bounds":    (*Contract).storageBalanceBounds,
		"storage_balance_of":        (*Contract).storageBalanceOf,
	}
)

// Contract binds a ledger to the host.
type Contract struct {
	ledger  *ledger.Ledger
	store   store.Store
	log     *slog.Logger
	pending []ledger.Event
}

// New wraps l. When st is non-nil every successful mutating call is
// committed to it together with the events it emitted.
func New(l *ledger.Ledger, st store.Store, logger *slog.Logger) *Contract {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Contract{ledger: l, store: st, log: logger}
	l.SetSink(ledger.EventSinkFunc(func(e ledger.Event) { c.pending = append(c.pending, e) }))
	return c
}

// Ledger returns the wrapped ledger.
func (c *Contract) Ledger() *ledger.Ledger { return c.ledger }

// Call implements host.Contract.
func (c *Contract) Call(ctx *host.Context, method string, args []byte) (host.Outcome, error) {
	if h, ok := views[method]; ok {
		out, err := h(c, ctx, args)
		c.observe(method, err)
		return out, err
	}
	h, ok := mutating[method]
	if !ok {
		return host.Outcome{}, fmt.Errorf("%w: %s", host.ErrMethodNotFound, method)
	}
	if ctx.View {
		return host.Outcome{}, fmt.Errorf("%w: %s", ErrNotView, method)
	}

	// a failed call leaves the ledger as it was, even when the ledger
	// operation itself succeeded
	snap := c.ledger.State()
	c.pending = nil
	out, err := h(c, ctx, args)
	events := c.pending
	c.pending = nil
	if err == nil {
		err = c.commit(events)
	}
	if err != nil {
		c.ledger.Restore(snap)
		c.observe(method, err)
		return host.Outcome{}, err
	}
	for _, e := range events {
		ctx.Log(e.Log())
	}
	c.observe(method, nil)
	return out, nil
}

func (c *Contract) commit(events []ledger.Event) error {
	if c.store != nil {
		if err := c.store.Commit(c.ledger.State(), events); err != nil {
			c.log.Error("failed to commit ledger state", "error", err)
			return fmt.Errorf("contract: commit: %w", err)
		}
	}
	supply, _ := new(big.Float).SetInt(c.ledger.TotalSupply().Big()).Float64()
	metrics.TotalShares.Set(supply)
	return nil
}

func (c *Contract) observe(method string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.OperationsTotal.WithLabelValues(method, status).Inc()
}

func env(ctx *host.Context) ledger.Env {
	return ledger.Env{Predecessor: ctx.Predecessor, Deposit: ctx.Deposit, PrepaidGas: ctx.PrepaidGas}
}

func value(v any) (host.Outcome, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{Value: b}, nil
}

// continuationResult returns the settled result a continuation was chained
// on. Only the contract itself may call a continuation.
func continuationResult(ctx *host.Context) (host.PromiseResult, error) {
	if ctx.Predecessor != ctx.Current {
		return host.PromiseResult{}, ledger.ErrPrivateMethod
	}
	if len(ctx.PromiseResults) != 1 {
		return host.PromiseResult{}, fmt.Errorf("%w: got %d", ErrMissingPromiseResult, len(ctx.PromiseResults))
	}
	return ctx.PromiseResults[0], nil
}

// transferPromise turns a token transfer effect into ft_transfer, chained
// with report_score when a score report is attached.
func transferPromise(t ledger.TokenTransfer) (*host.Promise, error) {
	args, err := encode(transferArgs{ReceiverID: t.Receiver, Amount: t.Amount, Memo: t.Memo})
	if err != nil {
		return nil, err
	}
	p := host.NewCall(t.Token, "ft_transfer", args).WithDeposit(ledger.OneYocto).WithGas(ledger.GasForFtTransfer)
	if t.Score != nil {
		args, err := encode(reportScoreArgs{BadgeID: t.Score.BadgeID, Amount: t.Score.Amount})
		if err != nil {
			return nil, err
		}
		p.Then(host.NewCall(t.Score.Registry, "report_score", args))
	}
	return p, nil
}

func transferOutcome(t ledger.TokenTransfer) (host.Outcome, error) {
	p, err := transferPromise(t)
	if err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{Return: p}, nil
}

func (c *Contract) disburse(transfers []ledger.TokenTransfer) ([]*host.Promise, error) {
	out := make([]*host.Promise, 0, len(transfers))
	for _, t := range transfers {
		p, err := transferPromise(t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	metrics.DisbursementsTotal.WithLabelValues("dispatched").Add(float64(len(out)))
	return out, nil
}

var _ host.Contract = (*Contract)(nil)
