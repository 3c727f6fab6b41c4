package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

var (
	bucketAccounts = []byte("accounts")
	bucketMeta     = []byte("meta")
	bucketEvents   = []byte("events")

	keyState = []byte("state")
)

// BoltStore keeps ledger state in a bbolt database. Account balances live in
// their own bucket keyed by account id, so bbolt's key order is the account
// enumeration order.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketMeta, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// tokenRecord is one entry of an ordered token map.
type tokenRecord struct {
	Token  string `msgpack:"token"`
	Amount string `msgpack:"amount"`
}

type pendingBurnRecord struct {
	ID      []byte `msgpack:"id"`
	Account string `msgpack:"account"`
	Shares  string `msgpack:"shares"`
}

type pendingTransferRecord struct {
	ID       []byte `msgpack:"id"`
	Sender   string `msgpack:"sender"`
	Receiver string `msgpack:"receiver"`
	Amount   string `msgpack:"amount"`
}

// metaRecord holds every scalar and ordered field of the state.
type metaRecord struct {
	TotalShares      string                  `msgpack:"total_shares"`
	Whitelist        []string                `msgpack:"whitelist"`
	Rewards          []tokenRecord           `msgpack:"rewards"`
	Deposits         []tokenRecord           `msgpack:"deposits"`
	Version          uint32                  `msgpack:"version"`
	Nonce            uint64                  `msgpack:"nonce"`
	CodeHash         []byte                  `msgpack:"code_hash"`
	PendingBurns     []pendingBurnRecord     `msgpack:"pending_burns"`
	PendingTransfers []pendingTransferRecord `msgpack:"pending_transfers"`
}

// Load implements Store.
func (s *BoltStore) Load() (*ledger.State, error) {
	var st *ledger.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyState)
		if data == nil {
			return ErrNotFound
		}
		var meta metaRecord
		if err := msgpack.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("%w: meta: %w", ErrCorrupt, err)
		}
		var err error
		if st, err = meta.toState(); err != nil {
			return err
		}
		return tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			bal, err := amount.FromBytes16(v)
			if err != nil {
				return fmt.Errorf("%w: account %s: %w", ErrCorrupt, k, err)
			}
			st.Accounts[types.AccountID(k)] = bal
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Commit implements Store.
func (s *BoltStore) Commit(state *ledger.State, events []ledger.Event) error {
	meta, err := encodeMeta(state)
	if err != nil {
		return fmt.Errorf("store: encode meta: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketAccounts); err != nil {
			return fmt.Errorf("store: reset accounts: %w", err)
		}
		accounts, err := tx.CreateBucket(bucketAccounts)
		if err != nil {
			return fmt.Errorf("store: reset accounts: %w", err)
		}
		for _, id := range state.AccountIDs() {
			if err := accounts.Put([]byte(id), state.Accounts[id].Bytes16()); err != nil {
				return fmt.Errorf("store: put account %s: %w", id, err)
			}
		}
		if err := tx.Bucket(bucketMeta).Put(keyState, meta); err != nil {
			return fmt.Errorf("store: put meta: %w", err)
		}

		eb := tx.Bucket(bucketEvents)
		for _, e := range events {
			seq, err := eb.NextSequence()
			if err != nil {
				return fmt.Errorf("store: event sequence: %w", err)
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("store: encode event: %w", err)
			}
			if err := eb.Put(seqKey(seq), data); err != nil {
				return fmt.Errorf("store: put event: %w", err)
			}
		}
		return nil
	})
}

// Events implements Store.
func (s *BoltStore) Events(from uint64) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(seqKey(from)); k != nil; k, v = c.Next() {
			var e ledger.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: event %d: %w", ErrCorrupt, binary.BigEndian.Uint64(k), err)
			}
			out = append(out, Record{Seq: binary.BigEndian.Uint64(k), Event: e})
		}
		return nil
	})
	return out, err
}

// seqKey encodes an event sequence as an 8-byte big-endian key for sorted storage.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func encodeTokens(entries []ledger.TokenAmount) []tokenRecord {
	out := make([]tokenRecord, len(entries))
	for i, e := range entries {
		out[i] = tokenRecord{Token: string(e.Token), Amount: e.Amount.String()}
	}
	return out
}

func decodeTokens(recs []tokenRecord) (ledger.TokenMap, error) {
	entries := make([]ledger.TokenAmount, len(recs))
	for i, r := range recs {
		a, err := amount.Parse(r.Amount)
		if err != nil {
			return ledger.TokenMap{}, fmt.Errorf("%w: token %s: %w", ErrCorrupt, r.Token, err)
		}
		entries[i] = ledger.TokenAmount{Token: types.AccountID(r.Token), Amount: a}
	}
	return ledger.NewTokenMap(entries...), nil
}

func encodeMeta(st *ledger.State) ([]byte, error) {
	meta := metaRecord{
		TotalShares: st.TotalShares.String(),
		Rewards:     encodeTokens(st.Rewards.Entries()),
		Deposits:    encodeTokens(st.Deposits.Entries()),
		Version:     st.Version,
		Nonce:       st.Nonce,
		CodeHash:    st.CodeHash,
	}
	for _, t := range st.Whitelist {
		meta.Whitelist = append(meta.Whitelist, string(t))
	}
	for id, pb := range st.PendingBurns {
		meta.PendingBurns = append(meta.PendingBurns, pendingBurnRecord{
			ID: id[:], Account: string(pb.Account), Shares: pb.Shares.String(),
		})
	}
	for id, pt := range st.PendingTransfers {
		meta.PendingTransfers = append(meta.PendingTransfers, pendingTransferRecord{
			ID: id[:], Sender: string(pt.Sender), Receiver: string(pt.Receiver), Amount: pt.Amount.String(),
		})
	}
	return msgpack.Marshal(&meta)
}

func (m *metaRecord) toState() (*ledger.State, error) {
	st := &ledger.State{
		Accounts:         make(map[types.AccountID]amount.Amount),
		PendingBurns:     make(map[types.CorrelationID]ledger.PendingBurn),
		PendingTransfers: make(map[types.CorrelationID]ledger.PendingTransfer),
	}

	var err error
	if st.TotalShares, err = amount.Parse(m.TotalShares); err != nil {
		return nil, fmt.Errorf("%w: total shares: %w", ErrCorrupt, err)
	}
	if st.Rewards, err = decodeTokens(m.Rewards); err != nil {
		return nil, err
	}
	if st.Deposits, err = decodeTokens(m.Deposits); err != nil {
		return nil, err
	}
	for _, t := range m.Whitelist {
		st.Whitelist = append(st.Whitelist, types.AccountID(t))
	}
	st.Version = m.Version
	st.Nonce = m.Nonce
	st.CodeHash = m.CodeHash

	for _, r := range m.PendingBurns {
		id, err := correlation(r.ID)
		if err != nil {
			return nil, err
		}
		shares, err := amount.Parse(r.Shares)
		if err != nil {
			return nil, fmt.Errorf("%w: pending burn: %w", ErrCorrupt, err)
		}
		st.PendingBurns[id] = ledger.PendingBurn{Account: types.AccountID(r.Account), Shares: shares}
	}
	for _, r := range m.PendingTransfers {
		id, err := correlation(r.ID)
		if err != nil {
			return nil, err
		}
		a, err := amount.Parse(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: pending transfer: %w", ErrCorrupt, err)
		}
		st.PendingTransfers[id] = ledger.PendingTransfer{
			Sender: types.AccountID(r.Sender), Receiver: types.AccountID(r.Receiver), Amount: a,
		}
	}
	return st, nil
}

func correlation(b []byte) (types.CorrelationID, error) {
	var id types.CorrelationID
	if len(b) != len(id) {
		return id, fmt.Errorf("%w: correlation id has %d bytes", ErrCorrupt, len(b))
	}
	copy(id[:], b)
	return id, nil
}

var _ Store = (*BoltStore)(nil)
