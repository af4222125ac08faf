// Package jsonfile persists the backend's collections as JSON array files.
// Writes are atomic (temp file then rename) and corrupt files read as empty.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
	"github.com/bestsbot/backend/internal/storage"
)

const (
	recordsFile  = "records.json"
	managersFile = "managers.json"
	ordersFile   = "orders.json"
)

// Store keeps each collection in its own file under dir. A single mutex
// serializes all access, matching the single-process deployment model.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ storage.Store = (*Store)(nil)

// Open prepares the data directory, creates missing collection files and seeds
// default managers when the manager file is empty or unreadable.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{dir: dir}

	for _, name := range []string{recordsFile, managersFile, ordersFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeAtomic(path, []byte("[]")); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}

	if _, err := s.loadManagers(); err != nil {
		return nil, err
	}

	return s, nil
}

// loadManagers reads the manager collection, restoring the defaults whenever
// the file is empty or unreadable. Callers must hold the mutex (Open is the
// exception, before the store is shared).
func (s *Store) loadManagers() ([]manager.Manager, error) {
	var managers []manager.Manager
	if err := readList(s.path(managersFile), &managers); err != nil || len(managers) == 0 {
		managers = manager.Defaults()
		if err := saveList(s.path(managersFile), managers); err != nil {
			return nil, err
		}
	}
	return managers, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
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

	var records []record.Record
	loadOrReset(s.path(recordsFile), &records)
	records = append(records, rec)

	if err := saveList(s.path(recordsFile), records); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListRecords(_ context.Context) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []record.Record
	loadOrReset(s.path(recordsFile), &records)
	return records, nil
}

func (s *Store) UpsertManager(_ context.Context, m manager.Manager) (manager.Manager, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	managers, err := s.loadManagers()
	if err != nil {
		return manager.Manager{}, false, err
	}

	created := true
	for i := range managers {
		if managers[i].ID == m.ID {
			managers[i].Name = m.Name
			created = false
			break
		}
	}
	if created {
		managers = append(managers, m)
	}

	if err := saveList(s.path(managersFile), managers); err != nil {
		return manager.Manager{}, false, err
	}
	return m, created, nil
}

func (s *Store) ListManagers(_ context.Context) ([]manager.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadManagers()
}

func (s *Store) DeleteManager(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	managers, err := s.loadManagers()
	if err != nil {
		return 0, err
	}

	remaining := managers[:0]
	for _, m := range managers {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	if len(remaining) == len(managers) {
		return 0, fmt.Errorf("manager %s: %w", id, storage.ErrNotFound)
	}
	if err := saveList(s.path(managersFile), remaining); err != nil {
		return 0, err
	}
	return len(remaining), nil
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

	var orders []order.Order
	loadOrReset(s.path(ordersFile), &orders)

	replaced := false
	for i := range orders {
		if orders[i].ID == o.ID {
			orders[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		orders = append(orders, o)
	}

	if err := saveList(s.path(ordersFile), orders); err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) ListOrders(_ context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []order.Order
	loadOrReset(s.path(ordersFile), &orders)
	return orders, nil
}

// BackupTo copies the collection files into dstDir. Used by the scheduled
// backup job.
func (s *Store) BackupTo(dstDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	for _, name := range []string{recordsFile, managersFile, ordersFile} {
		if err := copyFile(s.path(name), filepath.Join(dstDir, name)); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}
	return nil
}

// loadOrReset reads a JSON list, leaving dst empty when the file is missing,
// corrupt, or not an array.
func loadOrReset[T any](path string, dst *[]T) {
	if err := readList(path, dst); err != nil {
		*dst = nil
	}
}

func readList[T any](path string, dst *[]T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(data, dst)
}

func saveList[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
