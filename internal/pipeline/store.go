package pipeline

import (
	"strconv"
	"sync"
)

// table is a keyed set of in-flight records. Records are claimed (removed)
// before the external calls of a transition and restored if those fail, so
// a duplicate press racing a slow call finds nothing.
type table[K comparable, V any] struct {
	mu   sync.Mutex
	rows map[K]V
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{rows: make(map[K]V)}
}

func (t *table[K, V]) insert(k K, v V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[k]; exists {
		return false
	}
	t.rows[k] = v
	return true
}

func (t *table[K, V]) claim(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[k]
	if ok {
		delete(t.rows, k)
	}
	return v, ok
}

func (t *table[K, V]) restore(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[k] = v
}

func (t *table[K, V]) peek(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[k]
	return v, ok
}

func (t *table[K, V]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Store owns the pipeline's in-flight records. It lives for the process
// only.
type Store struct {
	approvals  *table[int, PendingApproval]
	dispatches *table[int, PendingDispatch]
	polls      *table[string, PendingPoll]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		approvals:  newTable[int, PendingApproval](),
		dispatches: newTable[int, PendingDispatch](),
		polls:      newTable[string, PendingPoll](),
	}
}

// Counts is the number of records per stage table.
type Counts struct {
	Approvals  int
	Dispatches int
	Polls      int
}

// Counts reports table sizes.
func (s *Store) Counts() Counts {
	return Counts{
		Approvals:  s.approvals.len(),
		Dispatches: s.dispatches.len(),
		Polls:      s.polls.len(),
	}
}

// Approval returns the approval record posted as messageID.
func (s *Store) Approval(messageID int) (PendingApproval, bool) {
	return s.approvals.peek(messageID)
}

// Dispatch returns the dispatch record posted as messageID.
func (s *Store) Dispatch(messageID int) (PendingDispatch, bool) {
	return s.dispatches.peek(messageID)
}

// Poll returns the poll record for pollID.
func (s *Store) Poll(pollID string) (PendingPoll, bool) {
	return s.polls.peek(pollID)
}

func (s *Store) claimApproval(messageID int) (PendingApproval, error) {
	rec, ok := s.approvals.claim(messageID)
	if !ok {
		return rec, &NotFoundError{Stage: StagePendingApproval, Key: strconv.Itoa(messageID)}
	}
	return rec, nil
}

func (s *Store) claimDispatch(messageID int) (PendingDispatch, error) {
	rec, ok := s.dispatches.claim(messageID)
	if !ok {
		return rec, &NotFoundError{Stage: StagePendingDispatch, Key: strconv.Itoa(messageID)}
	}
	return rec, nil
}
