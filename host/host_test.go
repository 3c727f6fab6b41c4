package host

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestHost() (*Host, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(epoch)
	return New(Config{Clock: clock}), clock
}

// echo returns its args, logs the method name and fails on "fail".
func echo(trace *[]string) Contract {
	return ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		*trace = append(*trace, string(ctx.Current)+"."+method)
		ctx.Log(method)
		if method == "fail" {
			return Outcome{}, errors.New("boom")
		}
		return Outcome{Value: args}, nil
	})
}

func TestSubmit_SimpleCall(t *testing.T) {
	h, _ := newTestHost()
	var trace []string
	h.Register("a.near", echo(&trace))

	res, err := h.Submit(context.Background(), Tx{Signer: "user.near", Receiver: "a.near", Method: "ping", Args: []byte(`"x"`)})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Succeeded())
	assert.Equal(t, `"x"`, string(res.Outcome.Value))
	assert.Equal(t, []string{"ping"}, res.Logs)
	require.Len(t, res.Receipts, 1)
	assert.Equal(t, types.AccountID("user.near"), res.Receipts[0].Predecessor)
}

func TestSubmit_FailureDropsLogs(t *testing.T) {
	h, _ := newTestHost()
	var trace []string
	h.Register("a.near", echo(&trace))

	res, err := h.Submit(context.Background(), Tx{Signer: "user.near", Receiver: "a.near", Method: "fail"})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Failed)
	assert.Equal(t, "boom", res.Outcome.Error)
	assert.Empty(t, res.Logs)
}

func TestSubmit_UnknownAccount(t *testing.T) {
	h, _ := newTestHost()
	res, err := h.Submit(context.Background(), Tx{Signer: "user.near", Receiver: "ghost.near", Method: "x"})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Failed)
	assert.Contains(t, res.Outcome.Error, "ghost.near")
}

func TestSubmit_ChainsAndContinuations(t *testing.T) {
	h, _ := newTestHost()
	var trace []string
	var seen []PromiseResult
	h.Register("b.near", echo(&trace))
	h.Register("a.near", ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		trace = append(trace, "a.near."+method)
		switch method {
		case "start":
			p := NewCall("b.near", "fail", nil).
				Then(NewCall("a.near", "callback", nil))
			return Outcome{Return: p, Detached: []*Promise{NewCall("b.near", "side", nil)}}, nil
		case "callback":
			assert.Equal(t, types.AccountID("a.near"), ctx.Predecessor)
			seen = ctx.PromiseResults
			return Outcome{Value: []byte(`"done"`)}, nil
		}
		return Outcome{}, ErrMethodNotFound
	}))

	res, err := h.Submit(context.Background(), Tx{Signer: "user.near", Receiver: "a.near", Method: "start"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.near.start", "b.near.side", "b.near.fail", "a.near.callback"}, trace)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Failed, "callback sees the failed call")
	assert.Equal(t, `"done"`, string(res.Outcome.Value), "receipt resolves to the chain's result")
	assert.Len(t, res.Receipts, 4)
	assert.Equal(t, []string{"side"}, res.Logs)
}

func TestSubmit_DetachedFailureNotPropagated(t *testing.T) {
	h, _ := newTestHost()
	var trace []string
	h.Register("b.near", echo(&trace))
	h.Register("a.near", ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		return Outcome{Value: []byte(`"ok"`), Detached: []*Promise{NewCall("b.near", "fail", nil)}}, nil
	}))

	res, err := h.Submit(context.Background(), Tx{Signer: "user.near", Receiver: "a.near", Method: "go"})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Succeeded())
	assert.Equal(t, []string{"b.near.fail"}, trace)
}

func TestSubmit_ContextFields(t *testing.T) {
	h, clock := newTestHost()
	clock.Advance(time.Minute)
	var got *Context
	h.Register("a.near", ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		got = ctx
		return Outcome{}, nil
	}))
	_, err := h.Submit(context.Background(), Tx{
		Signer: "user.near", Receiver: "a.near", Method: "m",
		Deposit: amount.New(1), Gas: 42 * types.TGas,
	})
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Minute), got.BlockTime)
	assert.Equal(t, 42*types.TGas, got.PrepaidGas)
	assert.Equal(t, "1", got.Deposit.String())
	assert.Equal(t, types.AccountID("user.near"), got.Signer)
	assert.NotEqual(t, chainhash.Hash{}, got.ReceiptID)
}

func TestSubmit_Canceled(t *testing.T) {
	h, _ := newTestHost()
	var trace []string
	h.Register("a.near", echo(&trace))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Submit(ctx, Tx{Signer: "user.near", Receiver: "a.near", Method: "ping"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, trace)
}

func TestDeploy(t *testing.T) {
	h, _ := newTestHost()
	h.Register("a.near", ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		return Outcome{Return: NewDeploy(ctx.Current, []byte("code"))}, nil
	}))
	res, err := h.Submit(context.Background(), Tx{Signer: "a.near", Receiver: "a.near", Method: "upgrade"})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Succeeded())
	assert.Len(t, h.CodeHash("a.near"), 32)
}

func TestView(t *testing.T) {
	h, _ := newTestHost()
	h.Register("a.near", ContractFunc(func(ctx *Context, method string, args []byte) (Outcome, error) {
		if method == "bad" {
			return Outcome{Return: NewCall("b.near", "x", nil)}, nil
		}
		assert.True(t, ctx.View)
		return Outcome{Value: []byte(`"1"`)}, nil
	}))
	v, err := h.View("a.near", "get", nil)
	require.NoError(t, err)
	assert.Equal(t, `"1"`, string(v))

	_, err = h.View("a.near", "bad", nil)
	assert.ErrorIs(t, err, ErrViewHasPromises)
	_, err = h.View("ghost.near", "get", nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPromise_Then(t *testing.T) {
	p := NewCall("a.near", "one", nil).Then(NewCall("b.near", "two", nil)).Then(NewCall("c.near", "three", nil))
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "one", p.Method())
	assert.Equal(t, "three", p.Next().Next().Method())
}

// --- In-memory collaborators ---

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMemToken_Transfer(t *testing.T) {
	h, _ := newTestHost()
	tok := NewMemToken()
	require.NoError(t, tok.Mint("pool.near", amount.New(100)))
	h.Register("tok.near", tok)

	res, err := h.Submit(context.Background(), Tx{
		Signer: "pool.near", Receiver: "tok.near", Method: "ft_transfer", Deposit: amount.New(1),
		Args: mustJSON(t, map[string]any{"receiver_id": "alice.near", "amount": "40"}),
	})
	require.NoError(t, err)
	require.True(t, res.Outcome.Succeeded(), res.Outcome.Error)
	assert.Equal(t, "60", tok.Balance("pool.near").String())
	assert.Equal(t, "40", tok.Balance("alice.near").String())
	require.Len(t, res.Logs, 1)
	e, err := ledger.ParseLog(res.Logs[0])
	require.NoError(t, err)
	assert.Equal(t, types.AccountID("alice.near"), e.To)

	tok.FailTransfersTo("alice.near")
	res, err = h.Submit(context.Background(), Tx{
		Signer: "pool.near", Receiver: "tok.near", Method: "ft_transfer", Deposit: amount.New(1),
		Args: mustJSON(t, map[string]any{"receiver_id": "alice.near", "amount": "1"}),
	})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Failed)
	assert.Equal(t, "60", tok.Balance("pool.near").String())

	res, err = h.Submit(context.Background(), Tx{
		Signer: "pool.near", Receiver: "tok.near", Method: "ft_transfer",
		Args: mustJSON(t, map[string]any{"receiver_id": "bob.near", "amount": "1"}),
	})
	require.NoError(t, err)
	assert.True(t, res.Outcome.Failed, "requires one yocto")
}

func TestMemToken_MintOverflow(t *testing.T) {
	tok := NewMemToken()
	require.NoError(t, tok.Mint("owner.near", amount.Max))
	err := tok.Mint("owner.near", amount.New(1))
	assert.ErrorIs(t, err, amount.ErrOverflow)
	assert.Equal(t, amount.Max, tok.Balance("owner.near"))
}

func TestMemToken_TransferCall(t *testing.T) {
	tests := []struct {
		name     string
		receiver *MemReceiver
		wantUsed string
		wantBack string
	}{
		{"all used", &MemReceiver{Unused: amount.Zero}, "30", "70"},
		{"partly unused", &MemReceiver{Unused: amount.New(10)}, "20", "80"},
		{"receiver fails", &MemReceiver{Fail: true}, "0", "100"},
		{"garbage report", &MemReceiver{Raw: []byte(`{}`)}, "0", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHost()
			tok := NewMemToken()
			require.NoError(t, tok.Mint("owner.near", amount.New(100)))
			h.Register("tok.near", tok)
			h.Register("farm.near", tt.receiver)

			res, err := h.Submit(context.Background(), Tx{
				Signer: "owner.near", Receiver: "tok.near", Method: "ft_transfer_call", Deposit: amount.New(1),
				Args: mustJSON(t, map[string]any{"receiver_id": "farm.near", "amount": "30", "msg": "stake"}),
			})
			require.NoError(t, err)
			require.True(t, res.Outcome.Succeeded(), res.Outcome.Error)

			var used amount.Amount
			require.NoError(t, json.Unmarshal(res.Outcome.Value, &used))
			assert.Equal(t, tt.wantUsed, used.String())
			assert.Equal(t, tt.wantBack, tok.Balance("owner.near").String())
		})
	}
}

func TestMemBadgeRegistry(t *testing.T) {
	h, _ := newTestHost()
	reg := NewMemBadgeRegistry()
	reg.Grant("alice.near", ledger.Badge{ID: "42", Score: amount.New(7)})
	h.Register("badges.near", reg)

	v, err := h.View("badges.near", "primary_holder_of", []byte(`{"account_id":"alice.near"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `["42","7"]`, string(v))

	v, err = h.View("badges.near", "primary_holder_of", []byte(`{"account_id":"bob.near"}`))
	require.NoError(t, err)
	assert.Equal(t, "null", string(v))

	res, err := h.Submit(context.Background(), Tx{
		Signer: "pool.near", Receiver: "badges.near", Method: "report_score",
		Args: []byte(`{"badge_id":"42","amount":"15"}`),
	})
	require.NoError(t, err)
	require.True(t, res.Outcome.Succeeded())
	assert.Equal(t, "15", reg.Score("42").String())

	reg.FailLookups = true
	_, err = h.View("badges.near", "primary_holder_of", []byte(`{"account_id":"alice.near"}`))
	assert.Error(t, err)
}
