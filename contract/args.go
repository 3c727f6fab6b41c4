package contract

import (
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

type transferArgs struct {
	ReceiverID types.AccountID `json:"receiver_id"`
	Amount     amount.Amount   `json:"amount"`
	Memo       string          `json:"memo,omitempty"`
	Msg        string          `json:"msg,omitempty"`
}

type onTransferArgs struct {
	SenderID types.AccountID `json:"sender_id"`
	Amount   amount.Amount   `json:"amount"`
	Msg      string          `json:"msg"`
}

type continuationArgs struct {
	CorrelationID types.CorrelationID `json:"correlation_id"`
}

type mintArgs struct {
	Shares amount.Amount `json:"shares"`
}

type tokenArgs struct {
	TokenID types.AccountID `json:"token_id"`
	Amount  amount.Amount   `json:"amount"`
}

type accountArgs struct {
	AccountID types.AccountID `json:"account_id"`
}

type sharesArgs struct {
	Shares amount.Amount `json:"shares"`
}

type reportScoreArgs struct {
	BadgeID string        `json:"badge_id"`
	Amount  amount.Amount `json:"amount"`
}

// decode unmarshals JSON args; empty input decodes as {}.
func decode(args []byte, v any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	return nil
}

// encode marshals promise arguments.
func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("contract: encode %T: %w", v, err)
	}
	return b, nil
}
