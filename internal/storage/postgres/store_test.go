package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestsbot/backend/internal/domain/manager"
	"github.com/bestsbot/backend/internal/domain/order"
	"github.com/bestsbot/backend/internal/domain/record"
	"github.com/bestsbot/backend/internal/storage"
)

func TestCreateRecordInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := New(db)
	created, err := s.CreateRecord(context.Background(), record.Record{
		Name:    "file",
		Date:    "2026-01-01",
		FileURL: "https://example.com/f",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertManagerReportsCreated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO managers").
		WithArgs("m1", "Dana").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	s := New(db)
	_, created, err := s.UpsertManager(context.Background(), manager.Manager{ID: "m1", Name: "Dana"})
	require.NoError(t, err)
	assert.True(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertManagerRequiresID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db)
	_, _, err = s.UpsertManager(context.Background(), manager.Manager{Name: "x"})
	assert.Error(t, err)
}

func TestDeleteManagerNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM managers").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := New(db)
	_, err = s.DeleteManager(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteManagerReturnsRemaining(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM managers").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s := New(db)
	remaining, err := s.DeleteManager(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListManagersReseedsWhenEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name FROM managers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	for _, m := range manager.Defaults() {
		mock.ExpectQuery("INSERT INTO managers").
			WithArgs(m.ID, m.Name).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	}

	s := New(db)
	managers, err := s.ListManagers(context.Background())
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "m1", managers[0].ID)
	assert.Equal(t, "m2", managers[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertOrderReplaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := New(db)
	o, err := s.UpsertOrder(context.Background(), order.Order{
		ID:          "o1",
		CompanyName: "Acme",
		CompanyBIN:  "123456789012",
		ManagerID:   "m1",
		FullData:    map[string]any{"id": "o1"},
	})
	require.NoError(t, err)
	assert.False(t, o.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecordsScansPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "date", "file_url", "payload", "created_at"}).
		AddRow("r1", "file", "2026-01-01", "https://example.com/f", []byte(`{"extra":"kept"}`), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT id, name, date, file_url, payload, created_at").
		WillReturnRows(rows)

	s := New(db)
	records, err := s.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Payload["extra"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
