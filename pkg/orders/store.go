package orders

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Slot addresses one order in the store.
type Slot struct {
	Account common.Address
	Index   uint64
}

// Store is the persistent table of trailing-stop orders: a two-level mapping
// from account to order index to order, plus a per-account next-index counter.
// Indices are handed out monotonically from zero and never reused, so a slot
// that has been deleted stays empty forever.
//
// The store itself is safe for concurrent use, but lifecycle atomicity
// (create/cancel/execute as indivisible operations) is the engine's job.
type Store struct {
	mu        sync.RWMutex
	orders    map[common.Address]map[uint64]TrailingStopOrder
	nextIndex map[common.Address]uint64
}

// NewStore constructs an empty order store.
func NewStore() *Store {
	return &Store{
		orders:    make(map[common.Address]map[uint64]TrailingStopOrder),
		nextIndex: make(map[common.Address]uint64),
	}
}

// NextIndex returns the account's next free order index and advances the
// counter. Read-then-increment is atomic under the store lock.
func (s *Store) NextIndex(account common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.nextIndex[account]
	s.nextIndex[account] = idx + 1
	return idx
}

// PeekIndex returns the counter without advancing it.
func (s *Store) PeekIndex(account common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextIndex[account]
}

// Put stores the order at (account, index), overwriting any previous value.
func (s *Store) Put(account common.Address, index uint64, order TrailingStopOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.orders[account]
	if m == nil {
		m = make(map[uint64]TrailingStopOrder)
		s.orders[account] = m
	}
	m[index] = order.Clone()
}

// Get returns a copy of the order at (account, index). ok is false when the
// slot is empty.
func (s *Store) Get(account common.Address, index uint64) (TrailingStopOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.orders[account]
	if m == nil {
		return TrailingStopOrder{}, false
	}
	o, ok := m[index]
	if !ok {
		return TrailingStopOrder{}, false
	}
	return o.Clone(), true
}

// Active reports whether a live order occupies (account, index).
func (s *Store) Active(account common.Address, index uint64) bool {
	_, ok := s.Get(account, index)
	return ok
}

// Delete clears the slot at (account, index). Deleting an empty slot is a no-op.
func (s *Store) Delete(account common.Address, index uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.orders[account]; m != nil {
		delete(m, index)
		if len(m) == 0 {
			delete(s.orders, account)
		}
	}
}

// Snapshot returns copies of every live order keyed by slot. Used by keepers
// scanning for executable orders; the result does not alias store state.
func (s *Store) Snapshot() map[Slot]TrailingStopOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Slot]TrailingStopOrder)
	for account, m := range s.orders {
		for idx, o := range m {
			out[Slot{Account: account, Index: idx}] = o.Clone()
		}
	}
	return out
}

// Len returns the number of live orders across all accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.orders {
		n += len(m)
	}
	return n
}
