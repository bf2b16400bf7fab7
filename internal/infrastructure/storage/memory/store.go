// Package memory provides an in-process implementation of every repository,
// the transaction manager and the outbox. It backs the domain tests and the
// server's OFICINA_STORAGE=memory mode.
//
// Transactions keep an undo log that is replayed on rollback. Part row locks
// are per-part channels held until the transaction ends; waiting longer than
// the lock timeout fails with a retryable CONCURRENT_MODIFICATION, matching
// the PostgreSQL lock_timeout behaviour. Reads are not isolated from other
// open transactions.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/events"
	"oficina/internal/core/id"
	"oficina/internal/core/tx"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
)

// DefaultLockTimeout mirrors the default database lock timeout.
const DefaultLockTimeout = 5 * time.Second

// Store holds all tables.
type Store struct {
	mu sync.Mutex

	parts     map[id.ID]inventory.Part
	movements []inventory.Movement
	orders    map[id.ID]serviceorder.ServiceOrder
	history   []serviceorder.HistoryEntry
	outbox    []StoredEvent
	audit     []AuditRecord
	sequences map[sequenceKey]int64

	locks       map[id.ID]chan struct{}
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets how long GetForUpdate waits for a part lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		parts:       make(map[id.ID]inventory.Part),
		orders:      make(map[id.ID]serviceorder.ServiceOrder),
		sequences:   make(map[sequenceKey]int64),
		locks:       make(map[id.ID]chan struct{}),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Transactions ---

type txKey struct{}

type txState struct {
	undo []func()
	held map[id.ID]chan struct{}
}

func txFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// TxManager implements tx.ReadOnlyManager over a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for s.
func NewTxManager(s *Store) *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction executes fn in a transaction. Nested calls join the
// outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	st := &txState{held: make(map[id.ID]chan struct{})}
	defer st.release()

	defer func() {
		if p := recover(); p != nil {
			m.store.rollback(st)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		m.store.rollback(st)
		return err
	}
	return nil
}

// ReadOnly runs fn like RunInTransaction; writes are not prevented.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

func (s *Store) rollback(st *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i]()
	}
	st.undo = nil
}

func (st *txState) release() {
	for partID, ch := range st.held {
		<-ch
		delete(st.held, partID)
	}
}

// onRollback registers undo for the current transaction. Callers hold s.mu.
// Writes outside a transaction are applied immediately and cannot be undone.
func (s *Store) onRollback(ctx context.Context, undo func()) {
	if st := txFrom(ctx); st != nil {
		st.undo = append(st.undo, undo)
	}
}

// lockPart takes the exclusive lock of a part for the current transaction.
func (s *Store) lockPart(ctx context.Context, partID id.ID) error {
	st := txFrom(ctx)
	if st == nil {
		return fmt.Errorf("GetForUpdate requires transaction context")
	}
	if _, ok := st.held[partID]; ok {
		return nil
	}

	s.mu.Lock()
	ch, ok := s.locks[partID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[partID] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		st.held[partID] = ch
		return nil
	case <-timer.C:
		return apperror.NewLockTimeout(fmt.Errorf("lock wait timeout on part %s", partID)).
			WithDetail("part_id", partID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// StoredEvent is an outbox row.
type StoredEvent struct {
	ID       id.ID
	TenantID id.ID
	Event    events.Event
	At       time.Time
}
