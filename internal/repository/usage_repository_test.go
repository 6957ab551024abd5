package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementWindowReturnsPostIncrementCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	window := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	// LAST_INSERT_ID(expr) surfaces the written counter through the
	// result's insert id.
	mock.ExpectExec("INSERT INTO api_key_usage").
		WithArgs("key-1", window).
		WillReturnResult(sqlmock.NewResult(7, 1))

	repo := NewUsageRepo(db)
	count, err := repo.IncrementWindow(context.Background(), "key-1", window)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT SUM\\(request_count\\) FROM api_key_usage").
		WithArgs("key-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(123))

	repo := NewUsageRepo(db)
	total, err := repo.SumSince(context.Background(), "key-1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(123), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumSinceNoWindows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	// SUM over zero rows is SQL NULL, which must read back as zero.
	mock.ExpectQuery("SELECT SUM\\(request_count\\) FROM api_key_usage").
		WithArgs("key-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))

	repo := NewUsageRepo(db)
	total, err := repo.SumSince(context.Background(), "key-1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
