package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/types"
)

// NEP-297 envelope constants.
const (
	EventLogPrefix = "EVENT_JSON:"
	EventStandard  = "nep141"
	EventVersion   = "1.0.0"
)

// EventKind is the NEP-141 event name.
type EventKind string

const (
	EventMint     EventKind = "ft_mint"
	EventBurn     EventKind = "ft_burn"
	EventTransfer EventKind = "ft_transfer"
)

// Event is one share balance mutation observable by indexers.
// Mint and burn events use Owner; transfers use From and To.
type Event struct {
	Kind   EventKind
	Owner  types.AccountID
	From   types.AccountID
	To     types.AccountID
	Amount amount.Amount
	Memo   string
}

// EventSink receives events after the operation that produced them commits.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

type ownerData struct {
	OwnerID types.AccountID `json:"owner_id"`
	Amount  amount.Amount   `json:"amount"`
	Memo    string          `json:"memo,omitempty"`
}

type transferData struct {
	OldOwnerID types.AccountID `json:"old_owner_id"`
	NewOwnerID types.AccountID `json:"new_owner_id"`
	Amount     amount.Amount   `json:"amount"`
	Memo       string          `json:"memo,omitempty"`
}

type envelope struct {
	Standard string          `json:"standard"`
	Version  string          `json:"version"`
	Event    EventKind       `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON encodes the event as a NEP-297 envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	var data any
	switch e.Kind {
	case EventMint, EventBurn:
		data = []ownerData{{OwnerID: e.Owner, Amount: e.Amount, Memo: e.Memo}}
	case EventTransfer:
		data = []transferData{{OldOwnerID: e.From, NewOwnerID: e.To, Amount: e.Amount, Memo: e.Memo}}
	default:
		return nil, fmt.Errorf("ledger: unknown event kind %q", e.Kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Standard: EventStandard, Version: EventVersion, Event: e.Kind, Data: raw})
}

// UnmarshalJSON decodes a single-item NEP-297 envelope.
func (e *Event) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if env.Standard != EventStandard {
		return fmt.Errorf("ledger: unexpected event standard %q", env.Standard)
	}
	*e = Event{Kind: env.Event}
	switch env.Event {
	case EventMint, EventBurn:
		var items []ownerData
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return err
		}
		if len(items) != 1 {
			return fmt.Errorf("ledger: event has %d data items", len(items))
		}
		e.Owner, e.Amount, e.Memo = items[0].OwnerID, items[0].Amount, items[0].Memo
	case EventTransfer:
		var items []transferData
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return err
		}
		if len(items) != 1 {
			return fmt.Errorf("ledger: event has %d data items", len(items))
		}
		e.From, e.To, e.Amount, e.Memo = items[0].OldOwnerID, items[0].NewOwnerID, items[0].Amount, items[0].Memo
	default:
		return fmt.Errorf("ledger: unknown event kind %q", env.Event)
	}
	return nil
}

// Log returns the event as an EVENT_JSON log line.
func (e Event) Log() string {
	b, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return EventLogPrefix + string(b)
}

// ParseLog decodes an EVENT_JSON log line.
func ParseLog(line string) (Event, error) {
	rest, ok := strings.CutPrefix(line, EventLogPrefix)
	if !ok {
		return Event{}, fmt.Errorf("ledger: not an event log: %q", line)
	}
	var e Event
	err := json.Unmarshal([]byte(rest), &e)
	return e, err
}
