package contract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/host"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/store"
	"github.com/bitfsorg/sharepool-go/types"
)

const (
	poolID     types.AccountID = "pool.near"
	owner      types.AccountID = "owner.near"
	rewarder   types.AccountID = "rewarder.near"
	tokenA     types.AccountID = "token-a.near"
	scoreToken types.AccountID = "score.near"
	alice      types.AccountID = "alice.near"
	farm       types.AccountID = "farm.near"
)

type fixture struct {
	host     *host.Host
	contract *Contract
	store    *store.MemStore
	tokenA   *host.MemToken
	score    *host.MemToken
	registry *host.MemBadgeRegistry
	farm     *host.MemReceiver
}

func newFixture(t *testing.T, mutate ...func(*ledger.Config)) *fixture {
	t.Helper()
	cfg := ledger.Config{
		ContractID:  poolID,
		Owner:       owner,
		Distributor: owner,
		Rewarder:    rewarder,
		ScoreToken:  scoreToken,
		Whitelist:   []types.AccountID{tokenA, scoreToken},
		Policy:      ledger.DefaultPolicy(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	l, err := ledger.New(cfg, nil)
	require.NoError(t, err)

	f := &fixture{
		host:     host.New(host.Config{Clock: clockwork.NewFakeClock()}),
		store:    store.NewMemStore(),
		tokenA:   host.NewMemToken(),
		score:    host.NewMemToken(),
		registry: host.NewMemBadgeRegistry(),
		farm:     &host.MemReceiver{},
	}
	f.contract = New(l, f.store, nil)
	f.host.Register(poolID, f.contract)
	f.host.Register(tokenA, f.tokenA)
	f.host.Register(scoreToken, f.score)
	f.host.Register(rewarder, f.registry)
	f.host.Register(farm, f.farm)
	return f
}

func args(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func (f *fixture) submit(t *testing.T, signer, receiver types.AccountID, method string, a []byte) *host.Result {
	t.Helper()
	res, err := f.host.Submit(context.Background(), host.Tx{
		Signer: signer, Receiver: receiver, Method: method, Args: a,
		Deposit: ledger.OneYocto, Gas: host.DefaultGas,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) mustSucceed(t *testing.T, signer, receiver types.AccountID, method string, a []byte) *host.Result {
	t.Helper()
	res := f.submit(t, signer, receiver, method, a)
	require.True(t, res.Outcome.Succeeded(), "%s.%s: %s", receiver, method, res.Outcome.Error)
	return res
}

// fund sends amt of token from the owner into the pool's pending deposits.
func (f *fixture) fund(t *testing.T, token *host.MemToken, id types.AccountID, amt string) {
	t.Helper()
	require.NoError(t, token.Mint(owner, amount.MustParse(amt)))
	res := f.mustSucceed(t, owner, id, "ft_transfer_call", args(t, map[string]any{
		"receiver_id": poolID, "amount": amt, "msg": "",
	}))
	assert.Equal(t, `"`+amt+`"`, string(res.Outcome.Value), "deposit fully used")
}

// setup pools 1000 token-a, mints 100 shares and gives alice 40.
func (f *fixture) setup(t *testing.T) {
	t.Helper()
	f.fund(t, f.tokenA, tokenA, "1000")
	f.mustSucceed(t, owner, poolID, "mint", args(t, map[string]any{"shares": "100"}))
	f.mustSucceed(t, owner, poolID, "ft_transfer", args(t, map[string]any{
		"receiver_id": alice, "amount": "40", "memo": "epoch 1",
	}))
}

func (f *fixture) view(t *testing.T, method string, a []byte) string {
	t.Helper()
	out, err := f.host.View(poolID, method, a)
	require.NoError(t, err)
	return string(out)
}

func TestDepositMintTransfer(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	assert.Equal(t, `"100"`, f.view(t, "ft_total_supply", nil))
	assert.Equal(t, `"60"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": owner})))
	assert.Equal(t, `"40"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": alice})))
	assert.Equal(t, `[["token-a.near","1000"]]`, f.view(t, "get_undistributed_rewards", nil))
	assert.Equal(t, `[]`, f.view(t, "get_deposits", nil))
	assert.Equal(t, `[{"account_id":"alice.near","shares":"40"},{"account_id":"owner.near","shares":"60"}]`,
		f.view(t, "get_accounts", nil))
	assert.Equal(t, "1000", f.tokenA.Balance(poolID).String())
}

func TestBurn_DisbursesRewards(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	assert.Equal(t, `[["token-a.near","400"]]`, f.view(t, "simulate_burn", args(t, map[string]any{"shares": "40"})))

	res := f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, `"40"`, string(res.Outcome.Value))
	assert.Contains(t, res.Logs, ledger.Event{Kind: ledger.EventBurn, Owner: alice, Amount: amount.New(40)}.Log())
	assert.Contains(t, res.Logs, ledger.Event{Kind: ledger.EventTransfer, From: poolID, To: alice, Amount: amount.New(400)}.Log())

	assert.Equal(t, "400", f.tokenA.Balance(alice).String())
	assert.Equal(t, "600", f.tokenA.Balance(poolID).String())
	assert.Equal(t, `"60"`, f.view(t, "ft_total_supply", nil))
	assert.Equal(t, `[["token-a.near","600"]]`, f.view(t, "get_undistributed_rewards", nil))
}

func TestBurn_FailedDisbursementDoesNotRevert(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	f.tokenA.FailTransfersTo(alice)

	res := f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, `"40"`, string(res.Outcome.Value))
	assert.True(t, f.tokenA.Balance(alice).IsZero())
	assert.Equal(t, `"60"`, f.view(t, "ft_total_supply", nil))
}

func TestBurn_RejectsWithoutBalance(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	res := f.submit(t, "nobody.near", poolID, "burn", nil)
	assert.True(t, res.Outcome.Failed)
	assert.Contains(t, res.Outcome.Error, ledger.ErrNoBalance.Error())
	assert.Empty(t, res.Logs)
}

func badgeFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, func(c *ledger.Config) { c.Policy.BadgePenalty = true })
	f.fund(t, f.tokenA, tokenA, "1000")
	f.fund(t, f.score, scoreToken, "100")
	f.mustSucceed(t, owner, poolID, "mint", args(t, map[string]any{"shares": "100"}))
	f.mustSucceed(t, owner, poolID, "ft_transfer", args(t, map[string]any{"receiver_id": alice, "amount": "40"}))
	return f
}

func TestBurn_BadgeHolderReportsScore(t *testing.T) {
	f := badgeFixture(t)
	f.registry.Grant(alice, ledger.Badge{ID: "7", Score: amount.New(1)})

	res := f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, `"40"`, string(res.Outcome.Value))

	assert.Equal(t, "400", f.tokenA.Balance(alice).String())
	assert.Equal(t, "40", f.score.Balance(alice).String())
	assert.Equal(t, "120", f.registry.Score("7").String())
	assert.Equal(t, `"60"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": owner})))
	assert.Empty(t, f.contract.Ledger().State().PendingBurns)
}

func TestBurn_NoBadgePaysPenaltyToOwner(t *testing.T) {
	f := badgeFixture(t)

	res := f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, `"40"`, string(res.Outcome.Value))
	assert.Contains(t, res.Logs, ledger.Event{Kind: ledger.EventTransfer, From: alice, To: owner, Amount: amount.New(8)}.Log())

	assert.Equal(t, "320", f.tokenA.Balance(alice).String())
	assert.Equal(t, "32", f.score.Balance(alice).String())
	assert.True(t, f.registry.Score("7").IsZero())
	assert.Equal(t, `"68"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": owner})))
	assert.Equal(t, `"68"`, f.view(t, "ft_total_supply", nil))
}

func TestBurn_LookupFailureRestoresBalance(t *testing.T) {
	f := badgeFixture(t)
	f.registry.FailLookups = true

	res := f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, `"0"`, string(res.Outcome.Value))
	assert.Equal(t, `"40"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": alice})))
	assert.Equal(t, `"100"`, f.view(t, "ft_total_supply", nil))
	assert.True(t, f.tokenA.Balance(alice).IsZero())
}

func TestBadgeResult(t *testing.T) {
	tests := []struct {
		name string
		in   host.PromiseResult
		want ledger.BadgeResult
	}{
		{"failed", host.PromiseResult{Failed: true}, ledger.BadgeResult{Failed: true}},
		{"null", host.PromiseResult{Value: []byte("null")}, ledger.BadgeResult{}},
		{"badge", host.PromiseResult{Value: []byte(`["3","12"]`)},
			ledger.BadgeResult{Badge: &ledger.Badge{ID: "3", Score: amount.New(12)}}},
		{"garbage", host.PromiseResult{Value: []byte(`{"x":1}`)}, ledger.BadgeResult{Failed: true}},
		{"short tuple", host.PromiseResult{Value: []byte(`["3"]`)}, ledger.BadgeResult{Failed: true}},
		{"numeric score", host.PromiseResult{Value: []byte(`["3",12]`)},
			ledger.BadgeResult{Badge: &ledger.Badge{ID: "3", Score: amount.New(12)}}},
		{"bad score", host.PromiseResult{Value: []byte(`["3","twelve"]`)}, ledger.BadgeResult{Failed: true}},
		{"numeric badge id", host.PromiseResult{Value: []byte(`[3,"12"]`)}, ledger.BadgeResult{Failed: true}},
		{"truncated", host.PromiseResult{Value: []byte(`["3","12"`)}, ledger.BadgeResult{Failed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, badgeResult(tt.in))
		})
	}
}

func TestTransferCall_RefundsUnused(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	f.farm.Unused = amount.New(15)

	res := f.mustSucceed(t, owner, poolID, "ft_transfer_call", args(t, map[string]any{
		"receiver_id": farm, "amount": "40", "msg": "stake",
	}))
	assert.Equal(t, `"25"`, string(res.Outcome.Value))
	assert.Equal(t, []string{"stake"}, f.farm.Messages())
	assert.Equal(t, `"25"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": farm})))
	assert.Equal(t, `"35"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": owner})))
	assert.Contains(t, res.Logs, ledger.Event{
		Kind: ledger.EventTransfer, From: farm, To: owner, Amount: amount.New(15), Memo: ledger.RefundMemo,
	}.Log())
	assert.Empty(t, f.contract.Ledger().State().PendingTransfers)
}

func TestTransferCall_ReceiverFailureRefundsAll(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	f.farm.Fail = true

	res := f.mustSucceed(t, owner, poolID, "ft_transfer_call", args(t, map[string]any{
		"receiver_id": farm, "amount": "40", "msg": "",
	}))
	assert.Equal(t, `"0"`, string(res.Outcome.Value))
	assert.Equal(t, `"60"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": owner})))
}

func TestContinuations_ArePrivate(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	for _, method := range []string{"on_burn", "ft_resolve_transfer", "migrate"} {
		res := f.submit(t, alice, poolID, method, args(t, map[string]any{"correlation_id": types.CorrelationID{1}}))
		assert.True(t, res.Outcome.Failed, method)
		assert.Contains(t, res.Outcome.Error, ledger.ErrPrivateMethod.Error(), method)
	}
}

func TestWithdrawReward_SendsTokens(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	res := f.mustSucceed(t, owner, poolID, "withdraw_reward", args(t, map[string]any{"token_id": tokenA, "amount": "300"}))
	assert.True(t, res.Outcome.Succeeded())
	assert.Equal(t, "300", f.tokenA.Balance(owner).String())
	assert.Equal(t, `[["token-a.near","700"]]`, f.view(t, "get_undistributed_rewards", nil))

	res = f.submit(t, alice, poolID, "withdraw_reward", args(t, map[string]any{"token_id": tokenA, "amount": "1"}))
	assert.True(t, res.Outcome.Failed)
}

func TestWhitelist(t *testing.T) {
	f := newFixture(t)
	f.mustSucceed(t, owner, poolID, "whitelist_add_token", args(t, map[string]any{"token_id": "token-c.near"}))
	f.mustSucceed(t, owner, poolID, "whitelist_remove_token", args(t, map[string]any{"token_id": tokenA}))
	assert.Equal(t, `["score.near","token-c.near"]`, f.view(t, "get_whitelisted_tokens", nil))

	// a non-whitelisted token's transfer is refunded by the token itself
	require.NoError(t, f.tokenA.Mint(owner, amount.New(10)))
	res := f.mustSucceed(t, owner, tokenA, "ft_transfer_call", args(t, map[string]any{"receiver_id": poolID, "amount": "10"}))
	assert.Equal(t, `"0"`, string(res.Outcome.Value))
	assert.Equal(t, "10", f.tokenA.Balance(owner).String())
}

func TestUpgradeAndMigrate(t *testing.T) {
	applied := 0
	f := newFixture(t, func(c *ledger.Config) {
		c.Migrations = []ledger.Migration{{Version: 1, Name: "touch", Apply: func(*ledger.Patch) error {
			applied++
			return nil
		}}}
	})
	code := []byte("\x00asm-v2")

	res := f.mustSucceed(t, owner, poolID, "upgrade_and_migrate", code)
	assert.JSONEq(t, `{"from":0,"to":1,"applied":["touch"]}`, string(res.Outcome.Value))
	assert.Equal(t, 1, applied)
	assert.Equal(t, bsvhash.Sha256(code), f.host.CodeHash(poolID))
	assert.Equal(t, uint32(1), f.contract.Ledger().State().Version)

	res = f.submit(t, alice, poolID, "upgrade", code)
	assert.True(t, res.Outcome.Failed)
	assert.Contains(t, res.Outcome.Error, ledger.ErrNotOwner.Error())
}

func TestViews(t *testing.T) {
	f := newFixture(t)

	assert.JSONEq(t, `{"spec":"ft-1.0.0","name":"Sharepool Reward Share","symbol":"SHARE",
		"icon":null,"reference":null,"reference_hash":null,"decimals":24}`, f.view(t, "ft_metadata", nil))
	assert.Equal(t, `"0"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": "ghost.near"})))
	assert.JSONEq(t, `{"total":"50000000000000000000000","available":"0"}`,
		f.view(t, "storage_balance_of", args(t, map[string]any{"account_id": alice})))

	_, err := f.host.View(poolID, "mint", args(t, map[string]any{"shares": "1"}))
	assert.ErrorIs(t, err, ErrNotView)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
	_, err = f.host.View(poolID, "nope", nil)
	assert.ErrorIs(t, err, host.ErrMethodNotFound)
	_, err = f.host.View(poolID, "ft_balance_of", []byte("{"))
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestStorageStubs(t *testing.T) {
	f := newFixture(t)
	for _, method := range []string{"storage_deposit", "storage_withdraw", "storage_unregister"} {
		res := f.submit(t, alice, poolID, method, nil)
		assert.True(t, res.Outcome.Failed, method)
	}
}

func TestCommitsToStore(t *testing.T) {
	f := newFixture(t)
	f.setup(t)

	st, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, f.contract.Ledger().State().Accounts, st.Accounts)
	assert.Equal(t, "100", st.TotalShares.String())

	recs, err := f.store.Events(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ledger.EventMint, recs[0].Event.Kind)
	assert.Equal(t, ledger.EventTransfer, recs[1].Event.Kind)
	assert.Equal(t, "epoch 1", recs[1].Event.Memo)

	res := f.submit(t, alice, poolID, "mint", args(t, map[string]any{"shares": "1"}))
	require.True(t, res.Outcome.Failed)
	recs, err = f.store.Events(0)
	require.NoError(t, err)
	assert.Len(t, recs, 2, "failed calls commit nothing")
}

type failingStore struct {
	*store.MemStore
	err error
}

func (s *failingStore) Commit(*ledger.State, []ledger.Event) error { return s.err }

func TestCommitFailureLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	before := f.contract.Ledger().State()
	f.contract.store = &failingStore{MemStore: f.store, err: errors.New("disk full")}

	res := f.submit(t, alice, poolID, "burn", nil)
	require.True(t, res.Outcome.Failed)
	assert.Contains(t, res.Outcome.Error, "disk full")
	assert.Empty(t, res.Logs)

	assert.Equal(t, before, f.contract.Ledger().State())
	assert.Equal(t, `"40"`, f.view(t, "ft_balance_of", args(t, map[string]any{"account_id": alice})))
	assert.Equal(t, `"100"`, f.view(t, "ft_total_supply", nil))
	assert.Equal(t, `[["token-a.near","1000"]]`, f.view(t, "get_undistributed_rewards", nil))
	assert.True(t, f.tokenA.Balance(alice).IsZero(), "nothing was disbursed")
	assert.Equal(t, "1000", f.tokenA.Balance(poolID).String())

	// once the store recovers the same burn goes through
	f.contract.store = f.store
	f.mustSucceed(t, alice, poolID, "burn", nil)
	assert.Equal(t, "400", f.tokenA.Balance(alice).String())
}
