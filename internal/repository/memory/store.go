// Package memory keeps every aggregate in process memory. It backs local runs
// with STORAGE_DRIVER=memory and the service test suites.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	clients       map[uuid.UUID]model.Client
	users         map[uuid.UUID]model.User
	loginAttempts map[uuid.UUID][]model.LoginAttempt
	workOrders    map[uuid.UUID]model.WorkOrder
	tasks         map[uuid.UUID]model.WorkOrderTask
	evidences     map[uuid.UUID]model.TaskEvidence
	templates     map[uuid.UUID]model.TaskTemplate
	auditLogs     []model.AuditLog

	locks *keyedLocks
}

func NewStore() *Store {
	return &Store{
		clients:       make(map[uuid.UUID]model.Client),
		users:         make(map[uuid.UUID]model.User),
		loginAttempts: make(map[uuid.UUID][]model.LoginAttempt),
		workOrders:    make(map[uuid.UUID]model.WorkOrder),
		tasks:         make(map[uuid.UUID]model.WorkOrderTask),
		evidences:     make(map[uuid.UUID]model.TaskEvidence),
		templates:     make(map[uuid.UUID]model.TaskTemplate),
		locks:         newKeyedLocks(),
	}
}

func (s *Store) WorkOrders() *WorkOrders { return &WorkOrders{s: s} }
func (s *Store) Tasks() *Tasks { return &Tasks{s: s} }
func (s *Store) Evidences() *Evidences { return &Evidences{s: s} }
func (s *Store) Templates() *Templates { return &Templates{s: s} }
func (s *Store) Clients() *Clients { return &Clients{s: s} }
func (s *Store) Users() *Users { return &Users{s: s} }
func (s *Store) AuditLogs() *AuditLogs { return &AuditLogs{s: s} }
func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

type txState struct {
	held []string
	undo []func()
}

type txKey struct{}

// Transactor mirrors the Postgres transactor: advisory locks are held until
// the outermost WithinTransaction returns, and a failed transaction puts back
// every row it wrote.
type Transactor struct {
	s *Store
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	defer func() {
		for i := len(state.held) - 1; i >= 0; i-- {
			t.s.locks.unlock(state.held[i])
		}
	}()
	err := fn(context.WithValue(ctx, txKey{}, state))
	if err != nil {
		t.rollback(state)
	}
	return err
}

func (t *Transactor) rollback(state *txState) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(state.undo) - 1; i >= 0; i-- {
		state.undo[i]()
	}
}

// onRollback registers fn to run if the surrounding transaction fails. Outside
// a transaction it does nothing. Callers hold s.mu.
func onRollback(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.undo = append(state.undo, fn)
	}
}

// remember saves the current entry for key so a failed transaction restores it.
func remember[K comparable, V any](ctx context.Context, m map[K]V, key K) {
	prev, existed := m[key]
	onRollback(ctx, func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

func (t *Transactor) AdvisoryLock(ctx context.Context, key string) error {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return repository.ErrNoTransaction
	}
	for _, held := range state.held {
		if held == key {
			return nil
		}
	}
	if err := t.s.locks.lock(ctx, key); err != nil {
		return err
	}
	state.held = append(state.held, key)
	return nil
}

type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[string]chan struct{})}
}

func (k *keyedLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *keyedLocks) lock(ctx context.Context, key string) error {
	select {
	case k.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keyedLocks) unlock(key string) {
	<-k.slot(key)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
