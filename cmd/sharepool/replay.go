package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/host"
	"github.com/bitfsorg/sharepool-go/types"
)

// call is one line of a replay script. A line either funds an account on
// an in-memory token or submits a transaction.
type call struct {
	Fund *struct {
		Token   types.AccountID `json:"token"`
		Account types.AccountID `json:"account"`
		Amount  amount.Amount   `json:"amount"`
	} `json:"fund,omitempty"`

	Signer   types.AccountID `json:"signer"`
	Receiver types.AccountID `json:"receiver"`
	Method   string          `json:"method"`
	Args     json.RawMessage `json:"args,omitempty"`
	Deposit  amount.Amount   `json:"deposit"`
	TGas     uint64          `json:"tgas,omitempty"`
}

// sandbox is a host with the ledger contract and in-memory collaborators
// for every whitelisted token and the badge registry.
type sandbox struct {
	host   *host.Host
	tokens map[types.AccountID]*host.MemToken
}

func newSandbox(a *app) *sandbox {
	sb := &sandbox{
		host:   host.New(host.Config{Clock: clockwork.NewRealClock(), Logger: a.log}),
		tokens: make(map[types.AccountID]*host.MemToken),
	}
	lcfg := a.ledger.Config()
	sb.host.Register(lcfg.ContractID, a.contract)
	for _, tok := range append(a.ledger.WhitelistedTokens(), lcfg.ScoreToken) {
		if tok == "" || sb.tokens[tok] != nil {
			continue
		}
		sb.tokens[tok] = host.NewMemToken()
		sb.host.Register(tok, sb.tokens[tok])
	}
	if lcfg.Rewarder != "" {
		sb.host.Register(lcfg.Rewarder, host.NewMemBadgeRegistry())
	}
	return sb
}

func (sb *sandbox) run(ctx context.Context, c call) (*host.Result, error) {
	if c.Fund != nil {
		t, ok := sb.tokens[c.Fund.Token]
		if !ok {
			return nil, fmt.Errorf("fund: %s is not a sandbox token", c.Fund.Token)
		}
		if err := t.Mint(c.Fund.Account, c.Fund.Amount); err != nil {
			return nil, fmt.Errorf("fund: %w", err)
		}
		return nil, nil
	}
	gas := host.DefaultGas
	if c.TGas != 0 {
		gas = types.Gas(c.TGas) * types.TGas
	}
	return sb.host.Submit(ctx, host.Tx{
		Signer:   c.Signer,
		Receiver: c.Receiver,
		Method:   c.Method,
		Args:     c.Args,
		Deposit:  c.Deposit,
		Gas:      gas,
	})
}

// replay runs every line of r and reports each outcome to w. It stops at
// the first malformed line; failed calls are reported and skipped.
func replay(ctx context.Context, sb *sandbox, r io.Reader, w io.Writer) (failed int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var c call
		if err := json.Unmarshal(line, &c); err != nil {
			return failed, fmt.Errorf("line %d: %w", lineNo, err)
		}
		res, err := sb.run(ctx, c)
		if err != nil {
			return failed, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if res == nil {
			fmt.Fprintf(w, "%4d fund %s %s %s\n", lineNo, c.Fund.Token, c.Fund.Account, fmtAmount(c.Fund.Amount))
			continue
		}
		if res.Outcome.Failed {
			failed++
			fmt.Fprintf(w, "%4d %s.%s by %s FAILED: %s\n", lineNo, c.Receiver, c.Method, c.Signer, res.Outcome.Error)
			continue
		}
		fmt.Fprintf(w, "%4d %s.%s by %s -> %s (%d receipts)\n",
			lineNo, c.Receiver, c.Method, c.Signer, string(res.Outcome.Value), len(res.Receipts))
		for _, l := range res.Logs {
			fmt.Fprintf(w, "       %s\n", l)
		}
	}
	return failed, sc.Err()
}

func newReplayCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <calls.jsonl>",
		Short: "Run a script of calls against the ledger with in-memory tokens",
		Long: `Run a script of calls against the ledger. Every whitelisted token and
the score token are simulated in memory, as is the badge registry. Ledger
state changes are committed to the data directory.

Each line is a JSON object, either a transaction
  {"signer":"owner.near","receiver":"pool.near","method":"mint","args":{"shares":"100"},"deposit":"1"}
or a token balance for the sandbox
  {"fund":{"token":"token-a.near","account":"owner.near","amount":"1000"}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(v, func(a *app) error {
				failed, err := replay(cmd.Context(), newSandbox(a), f, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if failed > 0 {
					a.log.Warn("replay finished with failed calls", "failed", failed)
				}
				return nil
			})
		},
	}
}

// runMigrate submits migrate as the contract itself, the way a deploy
// chain calls it.
func runMigrate(ctx context.Context, a *app) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := a.ledger.Config().ContractID
	res, err := newSandbox(a).host.Submit(ctx, host.Tx{Signer: id, Receiver: id, Method: "migrate"})
	if err != nil {
		return nil, err
	}
	if res.Outcome.Failed {
		return nil, errors.New(res.Outcome.Error)
	}
	return res.Outcome.Value, nil
}
