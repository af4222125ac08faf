// Package memory provides an in-memory store for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
	"github.com/bestsbot/backend/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use.
type Store struct {
	mu       sync.RWMutex
	reseed   bool
	records  []record.Record
	managers []manager.Manager
	orders   []order.Order
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store seeded with the default managers. The defaults
// come back whenever the manager collection is observed empty.
func New() *Store {
	return &Store{reseed: true, managers: manager.Defaults()}
}

// NewEmpty creates a store without seeded managers.
func NewEmpty() *Store {
	return &Store{}
}

// reseedManagersLocked restores the default managers when the collection has
// been emptied. Callers must hold the write lock.
func (s *Store) reseedManagersLocked() {
	if s.reseed && len(s.managers) == 0 {
		s.managers = manager.Defaults()
	}
}

func (s *Store) CreateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Payload = cloneMap(rec.Payload)

	s.records = append(s.records, rec)
	return cloneRecord(rec), nil
}

func (s *Store) ListRecords(_ context.Context) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (s *Store) UpsertManager(_ context.Context, m manager.Manager) (manager.Manager, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reseedManagersLocked()
	for i := range s.managers {
		if s.managers[i].ID == m.ID {
			s.managers[i].Name = m.Name
			return s.managers[i], false, nil
		}
	}
	s.managers = append(s.managers, m)
	return m, true, nil
}

func (s *Store) ListManagers(_ context.Context) ([]manager.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reseedManagersLocked()
	out := make([]manager.Manager, len(s.managers))
	copy(out, s.managers)
	return out, nil
}

func (s *Store) DeleteManager(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reseedManagersLocked()
	for i := range s.managers {
		if s.managers[i].ID == id {
			s.managers = append(s.managers[:i], s.managers[i+1:]...)
			return len(s.managers), nil
		}
	}
	return 0, fmt.Errorf("manager %s: %w", id, storage.ErrNotFound)
}

func (s *Store) UpsertOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.FullData = cloneMap(o.FullData)

	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
			return cloneOrder(o), nil
		}
	}
	s.orders = append(s.orders, o)
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func cloneRecord(rec record.Record) record.Record {
	rec.Payload = cloneMap(rec.Payload)
	return rec
}

func cloneOrder(o order.Order) order.Order {
	o.FullData = cloneMap(o.FullData)
	return o
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
