package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

func sampleState() *ledger.State {
	st := ledger.NewState("owner.near", []types.AccountID{"token-a.near", "token-b.near"})
	st.Accounts["owner.near"] = amount.MustParse("60")
	st.Accounts["alice.near"] = amount.MustParse("40")
	st.TotalShares = amount.MustParse("100")
	st.Rewards.Set("token-b.near", amount.MustParse("7"))
	st.Rewards.Set("token-a.near", amount.MustParse("340282366920938463463374607431768211455"))
	st.Deposits.Set("token-a.near", amount.MustParse("5"))
	st.Version = 2
	st.Nonce = 9
	st.CodeHash = []byte{0xde, 0xad}
	st.PendingBurns[types.CorrelationID{1}] = ledger.PendingBurn{Account: "bob.near", Shares: amount.MustParse("3")}
	st.PendingTransfers[types.CorrelationID{2}] = ledger.PendingTransfer{
		Sender: "owner.near", Receiver: "farm.near", Amount: amount.MustParse("4"),
	}
	return st
}

func sampleEvents() []ledger.Event {
	return []ledger.Event{
		{Kind: ledger.EventMint, Owner: "owner.near", Amount: amount.MustParse("100")},
		{Kind: ledger.EventTransfer, From: "owner.near", To: "alice.near", Amount: amount.MustParse("40"), Memo: "epoch"},
	}
}

func assertSameState(t *testing.T, want, got *ledger.State) {
	t.Helper()
	assert.Equal(t, want.Accounts, got.Accounts)
	assert.Equal(t, want.AccountIDs(), got.AccountIDs())
	assert.Equal(t, want.TotalShares, got.TotalShares)
	assert.Equal(t, want.Rewards.Entries(), got.Rewards.Entries())
	assert.Equal(t, want.Deposits.Entries(), got.Deposits.Entries())
	assert.Equal(t, want.Whitelist, got.Whitelist)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Nonce, got.Nonce)
	assert.Equal(t, want.CodeHash, got.CodeHash)
	assert.Equal(t, want.PendingBurns, got.PendingBurns)
	assert.Equal(t, want.PendingTransfers, got.PendingTransfers)
}

// runStoreTests exercises any Store implementation.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("empty", func(t *testing.T) {
		s := open(t)
		_, err := s.Load()
		assert.ErrorIs(t, err, ErrNotFound)
		recs, err := s.Events(0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("commit and load", func(t *testing.T) {
		s := open(t)
		st := sampleState()
		require.NoError(t, s.Commit(st, sampleEvents()))

		got, err := s.Load()
		require.NoError(t, err)
		assertSameState(t, st, got)
	})

	t.Run("commit replaces accounts", func(t *testing.T) {
		s := open(t)
		st := sampleState()
		require.NoError(t, s.Commit(st, nil))

		delete(st.Accounts, "alice.near")
		st.Accounts["owner.near"] = amount.MustParse("100")
		require.NoError(t, s.Commit(st, nil))

		got, err := s.Load()
		require.NoError(t, err)
		assert.NotContains(t, got.Accounts, types.AccountID("alice.near"))
		assert.Equal(t, "100", got.Accounts["owner.near"].String())
	})

	t.Run("events are sequenced", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(sampleState(), sampleEvents()))
		require.NoError(t, s.Commit(sampleState(), sampleEvents()[:1]))

		recs, err := s.Events(0)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		for i, r := range recs {
			assert.Equal(t, uint64(i+1), r.Seq)
		}
		assert.Equal(t, sampleEvents()[1], recs[1].Event)

		recs, err = s.Events(3)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, ledger.EventMint, recs[0].Event.Kind)
	})
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemStore() })
}

func TestMemStore_Closed(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Close())
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Commit(sampleState(), nil), ErrClosed)
}

func TestBoltStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := OpenBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	st := sampleState()
	require.NoError(t, s.Commit(st, sampleEvents()))
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load()
	require.NoError(t, err)
	assertSameState(t, st, got)

	recs, err := s.Events(1)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestBoltStore_LedgerRoundTrip(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	var pending []ledger.Event
	l, err := ledger.New(ledger.Config{
		ContractID:  "pool.near",
		Owner:       "owner.near",
		Distributor: "validator.near",
		Whitelist:   []types.AccountID{"token-a.near"},
		Policy:      ledger.DefaultPolicy(),
		Sink:        ledger.EventSinkFunc(func(e ledger.Event) { pending = append(pending, e) }),
	}, nil)
	require.NoError(t, err)

	_, err = l.OnTransfer(ledger.Env{Predecessor: "token-a.near"}, "owner.near", amount.MustParse("1000"), "")
	require.NoError(t, err)
	require.NoError(t, l.Mint(ledger.Env{Predecessor: "owner.near"}, amount.MustParse("10")))
	require.NoError(t, s.Commit(l.State(), pending))

	st, err := s.Load()
	require.NoError(t, err)
	restored, err := ledger.New(l.Config(), st)
	require.NoError(t, err)
	assert.Equal(t, "10", restored.TotalSupply().String())
	assert.Equal(t, "10", restored.BalanceOf("owner.near").String())
	assert.Equal(t, l.UndistributedRewards(), restored.UndistributedRewards())
}
