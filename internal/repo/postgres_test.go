package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationBoard/internal/model"
)

func newPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	store, err := NewPostgresStore(db, &log)
	require.NoError(t, err)
	return store, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestPostgresLoad(t *testing.T) {
	store, mock := newPostgres(t)

	mock.ExpectQuery(q("SELECT id, nome, meta, arrecadado, admin FROM events ORDER BY position ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome", "meta", "arrecadado", "admin"}).
			AddRow("park", "City Park Fund", 1000.0, 30.0, false).
			AddRow("library", "Library Drive", 500.0, 0.0, true))
	mock.ExpectQuery(q("SELECT event_id, valor, tipo FROM donations ORDER BY event_id, position ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "valor", "tipo"}).
			AddRow("park", 10.0, "Pix").
			AddRow("park", 20.0, "Debit").
			AddRow("ghost", 5.0, "Pix"))

	events, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "park", events[0].ID)
	assert.Equal(t, []model.Donation{{Amount: 10, Method: model.PaymentPix}, {Amount: 20, Method: model.PaymentDebit}}, events[0].Donations)
	assert.Equal(t, 30.0, events[0].Raised)
	assert.Equal(t, "library", events[1].ID)
	assert.True(t, events[1].Admin)
	assert.Equal(t, []model.Donation{}, events[1].Donations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoad_Empty(t *testing.T) {
	store, mock := newPostgres(t)

	mock.ExpectQuery(q("FROM events")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome", "meta", "arrecadado", "admin"}))
	mock.ExpectQuery(q("FROM donations")).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "valor", "tipo"}))

	events, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestPostgresLoad_QueryError(t *testing.T) {
	store, mock := newPostgres(t)
	mock.ExpectQuery(q("FROM events")).WillReturnError(errors.New("connection reset"))

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, errors.Is(err, ErrCorruptData))
}

func TestPostgresCreate(t *testing.T) {
	store, mock := newPostgres(t)
	e := model.Event{
		ID: "park", Name: "City Park Fund", Goal: 1000, Raised: 10,
		Donations: []model.Donation{{Amount: 10, Method: model.PaymentPix}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO events (id, nome, meta, arrecadado, admin)")).
		WithArgs("park", "City Park Fund", 1000.0, 10.0, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("INSERT INTO donations (event_id, position, valor, tipo)")).
		WithArgs("park", 0, 10.0, "Pix").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Create(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate(t *testing.T) {
	store, mock := newPostgres(t)
	e := model.Event{
		ID: "park", Name: "Park", Goal: 2000, Raised: 10,
		Donations: []model.Donation{{Amount: 10, Method: model.PaymentCredit}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE events")).
		WithArgs("Park", 2000.0, 10.0, false, "park").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM donations WHERE event_id = $1")).
		WithArgs("park").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO donations")).
		WithArgs("park", 0, 10.0, "Credit").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Update(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_NotFound(t *testing.T) {
	store, mock := newPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE events")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Update(context.Background(), model.Event{ID: "missing", Name: "x", Goal: 1})
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newPostgres(t)

	mock.ExpectExec(q("DELETE FROM events WHERE id = $1")).
		WithArgs("park").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM events WHERE id = $1")).
		WithArgs("park").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "park"))
	assert.ErrorIs(t, store.Delete(context.Background(), "park"), ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersist(t *testing.T) {
	store, mock := newPostgres(t)
	events := []model.Event{
		{ID: "a", Name: "A", Goal: 1, Donations: []model.Donation{}},
		{ID: "b", Name: "B", Goal: 2, Raised: 5, Donations: []model.Donation{{Amount: 5, Method: model.PaymentPix}}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM donations")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("DELETE FROM events")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO events")).WithArgs("a", "A", 1.0, 0.0, false).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("INSERT INTO events")).WithArgs("b", "B", 2.0, 5.0, false).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("INSERT INTO donations")).WithArgs("b", 0, 5.0, "Pix").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Persist(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersist_RollsBack(t *testing.T) {
	store, mock := newPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM donations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM events")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO events")).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := store.Persist(context.Background(), []model.Event{{ID: "a", Name: "A", Goal: 1}})
	assert.ErrorContains(t, err, "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrations(t *testing.T) {
	store, mock := newPostgres(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.up.sql"), []byte("CREATE TABLE a (id INT)"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_b.up.sql"), []byte("CREATE TABLE b (id INT)"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.down.sql"), []byte("DROP TABLE a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_b.down.sql"), []byte("DROP TABLE b"), 0644))

	mock.ExpectExec(q("CREATE TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("CREATE TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DROP TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DROP TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.MigrateUp(dir))
	require.NoError(t, store.MigrateDown(dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}
