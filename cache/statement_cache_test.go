package cache

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquirePreparesOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	const query = `SELECT "a" FROM "pairs"`
	mock.ExpectPrepare(query)

	c, err := NewStatementCache(4)
	require.NoError(t, err)

	ctx := context.Background()
	first, release, err := c.Acquire(ctx, db, query)
	require.NoError(t, err)
	release()
	second, release, err := c.Acquire(ctx, db, query)
	require.NoError(t, err)
	release()

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvictionClosesStatements(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed()
	mock.ExpectPrepare("SELECT 2")

	c, err := NewStatementCache(1)
	require.NoError(t, err)

	ctx := context.Background()
	_, release, err := c.Acquire(ctx, db, "SELECT 1")
	require.NoError(t, err)
	release()
	_, release, err = c.Acquire(ctx, db, "SELECT 2")
	require.NoError(t, err)
	release()

	_, _, ok := c.Lookup("SELECT 1")
	assert.False(t, ok)
	_, again, ok := c.Lookup("SELECT 2")
	require.True(t, ok)
	again()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvictedStatementStaysOpenWhileHeld(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	first := mock.ExpectPrepare("SELECT 1").WillBeClosed()
	mock.ExpectPrepare("SELECT 2")
	first.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))

	c, err := NewStatementCache(1)
	require.NoError(t, err)

	ctx := context.Background()
	held, release, err := c.Acquire(ctx, db, "SELECT 1")
	require.NoError(t, err)

	// evicts SELECT 1 from the cache while it is still held
	_, other, err := c.Acquire(ctx, db, "SELECT 2")
	require.NoError(t, err)
	other()
	_, _, ok := c.Lookup("SELECT 1")
	assert.False(t, ok)

	_, err = held.ExecContext(ctx)
	require.NoError(t, err)
	release()
	release()

	_, err = held.ExecContext(ctx)
	assert.Error(t, err, "released after eviction, the statement is closed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseDefersHeldStatements(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed().
		ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))

	c, err := NewStatementCache(2)
	require.NoError(t, err)

	ctx := context.Background()
	held, release, err := c.Acquire(ctx, db, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Zero(t, c.Len())

	_, err = held.ExecContext(ctx)
	require.NoError(t, err)
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareErrorIsNotCached(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT broken").WillReturnError(assert.AnError)

	c, err := NewStatementCache(2)
	require.NoError(t, err)

	_, _, err = c.Acquire(context.Background(), db, "SELECT broken")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, c.Len())
}

func TestNewStatementCacheRejectsZeroSize(t *testing.T) {
	_, err := NewStatementCache(0)
	assert.Error(t, err)
}
