// Package storage defines the persistence interfaces the HTTP layer depends on.
package storage

import (
	"context"
	"errors"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
)

// ErrNotFound is returned when a requested entity does not exist. Drivers wrap
// it so callers can match with errors.Is.
var ErrNotFound = errors.New("not found")

// RecordStore persists download records.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec record.Record) (record.Record, error)
	ListRecords(ctx context.Context) ([]record.Record, error)
}

// ManagerStore persists managers. UpsertManager reports whether the manager
// was created (true) or an existing one updated (false). DeleteManager
// returns the number of managers remaining after the deletion.
type ManagerStore interface {
	UpsertManager(ctx context.Context, m manager.Manager) (manager.Manager, bool, error)
	ListManagers(ctx context.Context) ([]manager.Manager, error)
	DeleteManager(ctx context.Context, id string) (int, error)
}

// OrderStore persists orders. UpsertOrder replaces an existing order with the
// same id wholesale.
type OrderStore interface {
	UpsertOrder(ctx context.Context, o order.Order) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// Store combines the persistence surfaces used by the backend.
type Store interface {
	RecordStore
	ManagerStore
	OrderStore
}
