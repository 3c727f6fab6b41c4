package contract

import (
	"github.com/tidwall/gjson"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/host"
	"github.com/bitfsorg/sharepool-go/ledger"
)

// --- Share transfer ---

func (c *Contract) ftTransfer(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a transferArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{}, c.ledger.Transfer(env(ctx), a.ReceiverID, a.Amount, a.Memo)
}

func (c *Contract) ftTransferCall(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a transferArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	rc, err := c.ledger.TransferCall(env(ctx), a.ReceiverID, a.Amount, a.Memo, a.Msg)
	if err != nil {
		return host.Outcome{}, err
	}
	notifyArgs, err := encode(onTransferArgs{SenderID: rc.Sender, Amount: rc.Amount, Msg: rc.Msg})
	if err != nil {
		return host.Outcome{}, err
	}
	resolveArgs, err := encode(continuationArgs{CorrelationID: rc.Correlation})
	if err != nil {
		return host.Outcome{}, err
	}
	notify := host.NewCall(rc.Receiver, "ft_on_transfer", notifyArgs).
		WithGas(ctx.PrepaidGas.Sub(ledger.GasForFtTransferCall))
	resolve := host.NewCall(ctx.Current, "ft_resolve_transfer", resolveArgs).
		WithGas(ledger.GasForResolveTransfer)
	return host.Outcome{Return: notify.Then(resolve)}, nil
}

func (c *Contract) ftResolveTransfer(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a continuationArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	r, err := continuationResult(ctx)
	if err != nil {
		return host.Outcome{}, err
	}
	used, err := c.ledger.ResolveTransfer(env(ctx), a.CorrelationID, ledger.CallResult{Value: r.Value, Failed: r.Failed})
	if err != nil {
		return host.Outcome{}, err
	}
	return value(used)
}

// --- Deposit intake ---

func (c *Contract) ftOnTransfer(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a onTransferArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	unused, err := c.ledger.OnTransfer(env(ctx), a.SenderID, a.Amount, a.Msg)
	if err != nil {
		return host.Outcome{}, err
	}
	return value(unused)
}

// --- Burn ---

func (c *Contract) burn(ctx *host.Context, args []byte) (host.Outcome, error) {
	out, err := c.ledger.Burn(env(ctx))
	if err != nil {
		return host.Outcome{}, err
	}
	if out.Phase == ledger.PhaseCommitted {
		lookupArgs, err := encode(accountArgs{AccountID: out.Lookup.Account})
		if err != nil {
			return host.Outcome{}, err
		}
		finishArgs, err := encode(continuationArgs{CorrelationID: out.Lookup.Correlation})
		if err != nil {
			return host.Outcome{}, err
		}
		lookup := host.NewCall(out.Lookup.Registry, "primary_holder_of", lookupArgs).WithGas(ledger.GasForBadgeCheck)
		finish := host.NewCall(ctx.Current, "on_burn", finishArgs)
		return host.Outcome{Return: lookup.Then(finish)}, nil
	}
	return c.burnOutcome(out)
}

func (c *Contract) onBurn(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a continuationArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	r, err := continuationResult(ctx)
	if err != nil {
		return host.Outcome{}, err
	}
	out, err := c.ledger.FinishBurn(env(ctx), a.CorrelationID, badgeResult(r))
	if err != nil {
		return host.Outcome{}, err
	}
	return c.burnOutcome(out)
}

func (c *Contract) burnOutcome(out ledger.BurnOutcome) (host.Outcome, error) {
	if out.Restored {
		c.log.Warn("burn reverted after failed badge lookup", "account", out.Account, "shares", out.Shares)
		return value(amount.Zero)
	}
	res, err := value(out.Shares)
	if err != nil {
		return host.Outcome{}, err
	}
	if res.Detached, err = c.disburse(out.Transfers); err != nil {
		return host.Outcome{}, err
	}
	c.log.Info("shares burned", "account", out.Account, "shares", out.Shares, "penalty", out.Penalty, "transfers", len(out.Transfers))
	return res, nil
}

// badgeResult decodes a primary_holder_of answer: null or [badge_id, score].
// An answer that cannot be decoded counts as a failed lookup.
func badgeResult(r host.PromiseResult) ledger.BadgeResult {
	if r.Failed || !gjson.ValidBytes(r.Value) {
		return ledger.BadgeResult{Failed: true}
	}
	res := gjson.ParseBytes(r.Value)
	if res.Type == gjson.Null {
		return ledger.BadgeResult{}
	}
	tuple := res.Array()
	if !res.IsArray() || len(tuple) != 2 || tuple[0].Type != gjson.String {
		return ledger.BadgeResult{Failed: true}
	}
	// score is a U128 string; a bare number is accepted too
	var raw string
	switch tuple[1].Type {
	case gjson.String:
		raw = tuple[1].Str
	case gjson.Number:
		raw = tuple[1].Raw
	default:
		return ledger.BadgeResult{Failed: true}
	}
	score, err := amount.Parse(raw)
	if err != nil {
		return ledger.BadgeResult{Failed: true}
	}
	return ledger.BadgeResult{Badge: &ledger.Badge{ID: tuple[0].Str, Score: score}}
}

// --- Minting and administration ---

func (c *Contract) mint(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a mintArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{}, c.ledger.Mint(env(ctx), a.Shares)
}

func (c *Contract) whitelistAdd(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a tokenArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{}, c.ledger.WhitelistAdd(env(ctx), a.TokenID)
}

func (c *Contract) whitelistRemove(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a tokenArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return host.Outcome{}, c.ledger.WhitelistRemove(env(ctx), a.TokenID)
}

func (c *Contract) withdraw(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a tokenArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	t, err := c.ledger.Withdraw(env(ctx), a.TokenID, a.Amount)
	if err != nil {
		return host.Outcome{}, err
	}
	return transferOutcome(t)
}

func (c *Contract) withdrawReward(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a tokenArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	t, err := c.ledger.WithdrawReward(env(ctx), a.TokenID, a.Amount)
	if err != nil {
		return host.Outcome{}, err
	}
	return transferOutcome(t)
}

func (c *Contract) removeReward(ctx *host.Context, args []byte) (host.Outcome, error) {
	var a tokenArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	t, err := c.ledger.RemoveReward(env(ctx), a.TokenID)
	if err != nil {
		return host.Outcome{}, err
	}
	return transferOutcome(t)
}

// upgrade takes the raw code as its input, not JSON.
func (c *Contract) upgrade(ctx *host.Context, code []byte) (host.Outcome, error) {
	return c.deploy(ctx, code, false)
}

func (c *Contract) upgradeAndMigrate(ctx *host.Context, code []byte) (host.Outcome, error) {
	return c.deploy(ctx, code, true)
}

func (c *Contract) deploy(ctx *host.Context, code []byte, migrate bool) (host.Outcome, error) {
	d, err := c.ledger.Upgrade(env(ctx), code, migrate)
	if err != nil {
		return host.Outcome{}, err
	}
	p := host.NewDeploy(ctx.Current, d.Code)
	if d.Migrate {
		p.Then(host.NewCall(ctx.Current, "migrate", nil))
	}
	return host.Outcome{Return: p}, nil
}

func (c *Contract) migrate(ctx *host.Context, args []byte) (host.Outcome, error) {
	rep, err := c.ledger.Migrate(env(ctx))
	if err != nil {
		return host.Outcome{}, err
	}
	return value(map[string]any{"from": rep.From, "to": rep.To, "applied": rep.Applied})
}

func (c *Contract) storageDeposit(ctx *host.Context, args []byte) (host.Outcome, error) {
	return host.Outcome{}, c.ledger.StorageDeposit(env(ctx))
}

func (c *Contract) storageWithdraw(ctx *host.Context, args []byte) (host.Outcome, error) {
	return host.Outcome{}, c.ledger.StorageWithdraw(env(ctx))
}

func (c *Contract) storageUnregister(ctx *host.Context, args []byte) (host.Outcome, error) {
	return host.Outcome{}, c.ledger.StorageUnregister(env(ctx))
}

// --- Views ---

func (c *Contract) ftTotalSupply(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.TotalSupply())
}

func (c *Contract) ftBalanceOf(_ *host.Context, args []byte) (host.Outcome, error) {
	var a accountArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return value(c.ledger.BalanceOf(a.AccountID))
}

func (c *Contract) ftMetadata(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.Metadata())
}

func (c *Contract) getWhitelistedTokens(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.WhitelistedTokens())
}

func (c *Contract) getUndistributedRewards(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.UndistributedRewards())
}

func (c *Contract) getDeposits(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.Deposits())
}

type accountEntry struct {
	AccountID string        `json:"account_id"`
	Shares    amount.Amount `json:"shares"`
}

func (c *Contract) getAccounts(*host.Context, []byte) (host.Outcome, error) {
	entries := c.ledger.Accounts()
	out := make([]accountEntry, len(entries))
	for i, e := range entries {
		out[i] = accountEntry{AccountID: string(e.Account), Shares: e.Shares}
	}
	return value(out)
}

func (c *Contract) simulateBurn(_ *host.Context, args []byte) (host.Outcome, error) {
	var a sharesArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	payouts, err := c.ledger.SimulateBurn(a.Shares)
	if err != nil {
		return host.Outcome{}, err
	}
	return value(payouts)
}

func (c *Contract) storageBalanceBounds(*host.Context, []byte) (host.Outcome, error) {
	return value(c.ledger.StorageBalanceBounds())
}

func (c *Contract) storageBalanceOf(_ *host.Context, args []byte) (host.Outcome, error) {
	var a accountArgs
	if err := decode(args, &a); err != nil {
		return host.Outcome{}, err
	}
	return value(c.ledger.StorageBalanceOf(a.AccountID))
}
