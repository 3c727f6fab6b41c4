package host

import (
	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// Promise is one scheduled action on a receiver, optionally followed by a
// chain of continuations. A continuation runs only after the previous link
// settles and sees that link's PromiseResult.
type Promise struct {
	receiver types.AccountID
	method   string
	args     []byte
	deposit  amount.Amount
	gas      types.Gas
	code     []byte
	deploy   bool
	next     *Promise
}

// NewCall returns a promise calling method on receiver with JSON args.
func NewCall(receiver types.AccountID, method string, args []byte) *Promise {
	return &Promise{receiver: receiver, method: method, args: args}
}

// NewDeploy returns a promise deploying code to receiver.
func NewDeploy(receiver types.AccountID, code []byte) *Promise {
	return &Promise{receiver: receiver, code: code, deploy: true}
}

// WithDeposit attaches amt to the call.
func (p *Promise) WithDeposit(amt amount.Amount) *Promise {
	p.deposit = amt
	return p
}

// WithGas sets the static gas of the call.
func (p *Promise) WithGas(g types.Gas) *Promise {
	p.gas = g
	return p
}

// Then appends next to the end of the chain and returns the head.
func (p *Promise) Then(next *Promise) *Promise {
	last := p
	for last.next != nil {
		last = last.next
	}
	last.next = next
	return p
}

// Receiver returns the account the promise is addressed to.
func (p *Promise) Receiver() types.AccountID { return p.receiver }

// Method returns the called method, empty for a deploy.
func (p *Promise) Method() string { return p.method }

// Args returns the call arguments.
func (p *Promise) Args() []byte { return p.args }

// Next returns the continuation, if any.
func (p *Promise) Next() *Promise { return p.next }

// Len returns the number of links in the chain.
func (p *Promise) Len() int {
	n := 0
	for q := p; q != nil; q = q.next {
		n++
	}
	return n
}

// PromiseResult is the settled outcome of a receipt.
type PromiseResult struct {
	Value  []byte
	Failed bool
	Error  string
}

// Succeeded reports whether the receipt succeeded.
func (r PromiseResult) Succeeded() bool { return !r.Failed }

// Outcome is what a contract method returns. If Return is set the receipt's
// result is the final result of that chain instead of Value. Detached
// promises run independently; their failures are not propagated.
type Outcome struct {
	Value    []byte
	Return   *Promise
	Detached []*Promise
}
