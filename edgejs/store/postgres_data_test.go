package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockPostgresData(t *testing.T) (*PostgresData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresData{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestPostgresDataGetFound(t *testing.T) {
	p, mock := newMockPostgresData(t)
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS data_widgets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT value::text FROM data_widgets WHERE key=\\$1").
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"n":1}`))

	value, found, err := p.Get(ctx, "widgets", "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"n":1}`, value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDataGetNotFound(t *testing.T) {
	p, mock := newMockPostgresData(t)
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS data_widgets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT value::text FROM data_widgets WHERE key=\\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, found, err := p.Get(ctx, "widgets", "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDataPut(t *testing.T) {
	p, mock := newMockPostgresData(t)
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS data_widgets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO data_widgets").
		WithArgs("k1", `{"n":1}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.Put(ctx, "widgets", "k1", `{"n":1}`)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDataDropCollection(t *testing.T) {
	p, mock := newMockPostgresData(t)
	ctx := context.Background()

	mock.ExpectExec("DROP TABLE IF EXISTS data_widgets").WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.DropCollection(ctx, "widgets")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
