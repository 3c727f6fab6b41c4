// Package store persists ledger state and the event log.
package store

import (
	"sync"

	"github.com/bitfsorg/sharepool-go/ledger"
)

// Record is one stored event with its sequence number. Sequence numbers
// start at 1 and increase by one per event.
type Record struct {
	Seq   uint64       `json:"seq"`
	Event ledger.Event `json:"event"`
}

// Store persists the ledger state together with the events that produced it.
type Store interface {
	// Load returns the last committed state, or ErrNotFound.
	Load() (*ledger.State, error)

	// Commit atomically replaces the state and appends events.
	Commit(state *ledger.State, events []ledger.Event) error

	// Events returns every record with Seq >= from.
	Events(from uint64) ([]Record, error)

	// Close releases the store.
	Close() error
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu     sync.RWMutex
	state  *ledger.State
	events []Record
	closed bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{} }

// Load implements Store.
func (s *MemStore) Load() (*ledger.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.state == nil {
		return nil, ErrNotFound
	}
	return s.state.Clone(), nil
}

// Commit implements Store.
func (s *MemStore) Commit(state *ledger.State, events []ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state = state.Clone()
	for _, e := range events {
		s.events = append(s.events, Record{Seq: uint64(len(s.events)) + 1, Event: e})
	}
	return nil
}

// Events implements Store.
func (s *MemStore) Events(from uint64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []Record
	for _, r := range s.events {
		if r.Seq >= from {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemStore)(nil)
