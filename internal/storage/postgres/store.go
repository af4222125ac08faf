// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
	"github.com/bestsbot/backend/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SeedDefaultManagers inserts the default managers when the table is empty.
func (s *Store) SeedDefaultManagers(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM managers`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.insertDefaultManagers(ctx)
}

func (s *Store) insertDefaultManagers(ctx context.Context) error {
	for _, m := range manager.Defaults() {
		if _, _, err := s.UpsertManager(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return record.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, name, date, file_url, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Name, rec.Date, rec.FileURL, payloadJSON, rec.CreatedAt)
	if err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, file_url, payload, created_at
		FROM records
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []record.Record
	for rows.Next() {
		var (
			rec        record.Record
			payloadRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Date, &rec.FileURL, &payloadRaw, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(payloadRaw) > 0 {
			_ = json.Unmarshal(payloadRaw, &rec.Payload)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) UpsertManager(ctx context.Context, m manager.Manager) (manager.Manager, bool, error) {
	if m.ID == "" {
		return manager.Manager{}, false, errors.New("manager id required")
	}

	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO managers (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING (xmax = 0)
	`, m.ID, m.Name).Scan(&created)
	if err != nil {
		return manager.Manager{}, false, err
	}
	return m, created, nil
}

func (s *Store) ListManagers(ctx context.Context) ([]manager.Manager, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM managers ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []manager.Manager
	for rows.Next() {
		var m manager.Manager
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// An emptied collection is observed re-seeded with the defaults.
	if len(result) == 0 {
		if err := s.insertDefaultManagers(ctx); err != nil {
			return nil, err
		}
		return manager.Defaults(), nil
	}
	return result, nil
}

func (s *Store) DeleteManager(ctx context.Context, id string) (int, error) {
	if err := s.SeedDefaultManagers(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM managers WHERE id = $1
	`, id)
	if err != nil {
		return 0, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, fmt.Errorf("manager %s: %w", id, storage.ErrNotFound)
	}

	var remaining int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM managers`).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (s *Store) UpsertOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	fullDataJSON, err := json.Marshal(o.FullData)
	if err != nil {
		return order.Order{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, company_name, company_bin, manager_id, full_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			company_bin = EXCLUDED.company_bin,
			manager_id = EXCLUDED.manager_id,
			full_data = EXCLUDED.full_data,
			created_at = EXCLUDED.created_at
	`, o.ID, o.CompanyName, o.CompanyBIN, o.ManagerID, fullDataJSON, o.CreatedAt)
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_name, company_bin, manager_id, full_data, created_at
		FROM orders
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var (
			o           order.Order
			fullDataRaw []byte
		)
		if err := rows.Scan(&o.ID, &o.CompanyName, &o.CompanyBIN, &o.ManagerID, &fullDataRaw, &o.CreatedAt); err != nil {
			return nil, err
		}
		if len(fullDataRaw) > 0 {
			_ = json.Unmarshal(fullDataRaw, &o.FullData)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
