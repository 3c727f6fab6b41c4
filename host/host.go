// Package host is a single-threaded execution host. It runs contract
// receipts one at a time in FIFO order and threads promise results into
// continuations, the way a sharded runtime schedules cross-contract calls.
package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/jonboulle/clockwork"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/metrics"
	"github.com/bitfsorg/sharepool-go/types"
)

// DefaultGas is attached to promises that do not set gas.
const DefaultGas = 300 * types.TGas

// Contract is code deployed on an account.
type Contract interface {
	Call(ctx *Context, method string, args []byte) (Outcome, error)
}

// ContractFunc adapts a function to Contract.
type ContractFunc func(ctx *Context, method string, args []byte) (Outcome, error)

// Call calls f.
func (f ContractFunc) Call(ctx *Context, method string, args []byte) (Outcome, error) {
	return f(ctx, method, args)
}

// Context is the environment of one receipt.
type Context struct {
	Current        types.AccountID
	Predecessor    types.AccountID
	Signer         types.AccountID
	Deposit        amount.Amount
	PrepaidGas     types.Gas
	ReceiptID      chainhash.Hash
	BlockTime      time.Time
	PromiseResults []PromiseResult
	View           bool

	logs []string
}

// Log records a log line, kept only if the receipt succeeds.
func (c *Context) Log(line string) { c.logs = append(c.logs, line) }

// Tx is a signed function call submitted to the host.
type Tx struct {
	Signer   types.AccountID
	Receiver types.AccountID
	Method   string
	Args     []byte
	Deposit  amount.Amount
	Gas      types.Gas
}

// ReceiptRecord describes one executed receipt.
type ReceiptRecord struct {
	ID          chainhash.Hash
	Predecessor types.AccountID
	Receiver    types.AccountID
	Method      string
	Result      PromiseResult
	Logs        []string
}

// Result is the outcome of a transaction and everything it caused.
type Result struct {
	// Outcome is the final result of the called method, following returned promises.
	Outcome  PromiseResult
	Logs     []string
	Receipts []ReceiptRecord
}

// Config configures a Host.
type Config struct {
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Host executes receipts against registered contracts.
type Host struct {
	clock     clockwork.Clock
	log       *slog.Logger
	contracts map[types.AccountID]Contract
	code      map[types.AccountID][]byte
	queue     []*receipt
	nonce     uint64
	current   *Result
}

type receipt struct {
	id          chainhash.Hash
	predecessor types.AccountID
	signer      types.AccountID
	promise     *Promise
	inputs      []PromiseResult
	done        func(PromiseResult)
}

// New creates a host with no accounts.
func New(cfg Config) *Host {
	h := &Host{
		clock:     cfg.Clock,
		log:       cfg.Logger,
		contracts: make(map[types.AccountID]Contract),
		code:      make(map[types.AccountID][]byte),
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// Register deploys c on account id.
func (h *Host) Register(id types.AccountID, c Contract) {
	h.contracts[id] = c
}

// CodeHash returns the sha256 of the last code deployed to id, or nil.
func (h *Host) CodeHash(id types.AccountID) []byte { return h.code[id] }

// Submit runs tx and every receipt it causes until the queue is empty.
func (h *Host) Submit(ctx context.Context, tx Tx) (*Result, error) {
	res := &Result{}
	h.current = res
	defer func() { h.current = nil }()

	p := NewCall(tx.Receiver, tx.Method, tx.Args).WithDeposit(tx.Deposit).WithGas(tx.Gas)
	settled := false
	h.schedule(p, tx.Signer, tx.Signer, nil, func(r PromiseResult) {
		res.Outcome = r
		settled = true
	})

	for len(h.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r := h.queue[0]
		h.queue = h.queue[1:]
		h.execute(r)
	}
	if !settled {
		return res, fmt.Errorf("%w: transaction did not settle", ErrExecution)
	}
	return res, nil
}

// View calls a read-only method. The method must not schedule promises.
func (h *Host) View(id types.AccountID, method string, args []byte) ([]byte, error) {
	c, ok := h.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	ctx := &Context{Current: id, BlockTime: h.clock.Now(), View: true}
	out, err := c.Call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	if out.Return != nil || len(out.Detached) > 0 {
		return nil, ErrViewHasPromises
	}
	return out.Value, nil
}

// schedule enqueues the head of chain p; each settled link enqueues the
// next with the settled result as its input, and the last one calls done.
func (h *Host) schedule(p *Promise, predecessor, signer types.AccountID, inputs []PromiseResult, done func(PromiseResult)) {
	h.nonce++
	buf := make([]byte, 0, 64)
	buf = append(buf, predecessor...)
	buf = append(buf, '|')
	buf = append(buf, p.receiver...)
	buf = append(buf, '|')
	buf = append(buf, p.method...)
	buf = binary.BigEndian.AppendUint64(buf, h.nonce)

	h.queue = append(h.queue, &receipt{
		id:          chainhash.DoubleHashH(buf),
		predecessor: predecessor,
		signer:      signer,
		promise:     p,
		inputs:      inputs,
		done: func(r PromiseResult) {
			if p.next == nil {
				if done != nil {
					done(r)
				}
				return
			}
			h.schedule(p.next, predecessor, signer, []PromiseResult{r}, done)
		},
	})
}

func (h *Host) execute(r *receipt) {
	start := h.clock.Now()
	p := r.promise

	record := func(res PromiseResult, logs []string) {
		status := "success"
		if res.Failed {
			status = "failure"
			h.log.Warn("receipt failed", "receiver", p.receiver, "method", p.method, "error", res.Error)
		} else {
			h.log.Debug("receipt executed", "receiver", p.receiver, "method", p.method, "logs", len(logs))
		}
		metrics.ReceiptsTotal.WithLabelValues(status).Inc()
		metrics.ReceiptDuration.Observe(h.clock.Since(start).Seconds())
		if h.current != nil {
			h.current.Receipts = append(h.current.Receipts, ReceiptRecord{
				ID:          r.id,
				Predecessor: r.predecessor,
				Receiver:    p.receiver,
				Method:      p.method,
				Result:      res,
				Logs:        logs,
			})
			h.current.Logs = append(h.current.Logs, logs...)
		}
	}
	settle := func(res PromiseResult, logs []string) {
		record(res, logs)
		r.done(res)
	}

	if p.deploy {
		h.code[p.receiver] = bsvhash.Sha256(p.code)
		h.log.Info("code deployed", "account", p.receiver, "hash", fmt.Sprintf("%x", h.code[p.receiver]))
		settle(PromiseResult{}, nil)
		return
	}

	c, ok := h.contracts[p.receiver]
	if !ok {
		settle(PromiseResult{Failed: true, Error: fmt.Sprintf("%s: %s", ErrAccountNotFound, p.receiver)}, nil)
		return
	}

	gas := p.gas
	if gas == 0 {
		gas = DefaultGas
	}
	ctx := &Context{
		Current:        p.receiver,
		Predecessor:    r.predecessor,
		Signer:         r.signer,
		Deposit:        p.deposit,
		PrepaidGas:     gas,
		ReceiptID:      r.id,
		BlockTime:      start,
		PromiseResults: r.inputs,
	}
	out, err := c.Call(ctx, p.method, p.args)
	if err != nil {
		settle(PromiseResult{Failed: true, Error: err.Error()}, nil)
		return
	}

	for _, d := range out.Detached {
		h.schedule(d, p.receiver, r.signer, nil, func(res PromiseResult) {
			if res.Failed {
				h.log.Warn("detached call failed", "receiver", d.receiver, "method", d.method, "error", res.Error)
			}
		})
	}
	if out.Return != nil {
		// The receipt settles when the returned chain does.
		record(PromiseResult{Value: out.Value}, ctx.logs)
		h.schedule(out.Return, p.receiver, r.signer, nil, r.done)
		return
	}
	settle(PromiseResult{Value: out.Value}, ctx.logs)
}
