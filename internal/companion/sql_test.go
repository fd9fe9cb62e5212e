package companion

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStoreSQLite(t *testing.T) {
	store, err := OpenSQLStore(context.Background(), SQLConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLStoreListEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLStore(ctx, SQLConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a_b", []byte("1")))
	require.NoError(t, store.Set(ctx, "axb", []byte("2")))
	require.NoError(t, store.Set(ctx, "A_B", []byte("3")))

	keys, err := store.List(ctx, "a_")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, keys)
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta(schemaFor("pgx"))).WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, "pgx")
	require.NoError(t, err)
	return store, mock
}

func TestSQLStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(sqlGet)).
		WithArgs("app.A").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := store.Get(context.Background(), "app.A")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(sqlGet)).
		WithArgs("app.A").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "app.A")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSetError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(sqlUpsert)).
		WithArgs("app.A", []byte("v")).
		WillReturnError(errors.New("read-only transaction"))

	err := store.Set(context.Background(), "app.A", []byte("v"))
	assert.ErrorContains(t, err, "set app.A")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err = NewSQLStore(context.Background(), db, "sqlite3")
	assert.ErrorContains(t, err, "create registry table")
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `app.%`, likePattern("app."))
	assert.Equal(t, `a\_b\%%`, likePattern("a_b%"))
	assert.Equal(t, `%`, likePattern(""))
}
