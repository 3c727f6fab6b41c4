package ledger

import (
	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// Effects are outbound calls the ledger asks the host to schedule. The ledger
// state they refer to is already committed when they are returned.

// ScoreReport is a report_score call chained after a token transfer settles.
type ScoreReport struct {
	Registry types.AccountID
	BadgeID  string
	Amount   amount.Amount
}

// TokenTransfer is an ft_transfer of Amount of Token to Receiver.
type TokenTransfer struct {
	Token    types.AccountID
	Receiver types.AccountID
	Amount   amount.Amount
	Memo     string
	Score    *ScoreReport
}

// BadgeLookup asks Registry for Account's primary badge and continues the
// burn identified by Correlation with the answer.
type BadgeLookup struct {
	Registry    types.AccountID
	Account     types.AccountID
	Correlation types.CorrelationID
}

// ReceiverCall is an ft_on_transfer notification to Receiver whose report is
// resolved by the transfer identified by Correlation.
type ReceiverCall struct {
	Receiver    types.AccountID
	Sender      types.AccountID
	Amount      amount.Amount
	Msg         string
	Correlation types.CorrelationID
}

// DeployCode replaces the contract code, optionally followed by a migrate call.
type DeployCode struct {
	Code    []byte
	Hash    []byte
	Migrate bool
}

// Badge is a registry answer for a holder of a qualifying badge.
type Badge struct {
	ID    string
	Score amount.Amount
}

// BadgeResult is the settled outcome of a BadgeLookup.
// Failed means the lookup call itself failed.
type BadgeResult struct {
	Badge  *Badge
	Failed bool
}

// CallResult is the settled outcome of a ReceiverCall.
type CallResult struct {
	Value  []byte
	Failed bool
}

// Phase tells whether a burn finished synchronously.
type Phase int

const (
	// PhaseCommitted means the balance was removed and a badge lookup is pending.
	PhaseCommitted Phase = iota
	// PhaseFinalized means payouts were computed and shares retired.
	PhaseFinalized
)

func (p Phase) String() string {
	if p == PhaseCommitted {
		return "committed"
	}
	return "finalized"
}

// BurnOutcome reports a burn step.
type BurnOutcome struct {
	Phase     Phase
	Account   types.AccountID
	Shares    amount.Amount // balance removed, before any penalty
	Penalty   amount.Amount // shares redirected to the owner
	Lookup    *BadgeLookup  // set in PhaseCommitted
	Transfers []TokenTransfer
	Restored  bool // the badge lookup failed and the shares were returned
}
