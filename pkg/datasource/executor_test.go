package datasource

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; shared cache keeps the pool on one database so nested
	// queries during introspection see the test tables.
	db, err := sqlx.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExecuteReturnsRows(t *testing.T) {
	db := openTestDB(t)
	db.MustExec(`CREATE TABLE sales (category TEXT, amount REAL)`)
	db.MustExec(`INSERT INTO sales VALUES ('books', 12.5), ('games', 40)`)

	exec := NewExecutor(db, nil)
	rows, err := exec.Execute(context.Background(),
		"SELECT category, SUM(amount) AS total FROM sales GROUP BY category ORDER BY category", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "books", rows[0]["category"])
	require.Equal(t, float64(12.5), rows[0]["total"])
}

func TestExecuteCapsRowsInOrder(t *testing.T) {
	db := openTestDB(t)
	db.MustExec(`CREATE TABLE seq (n INTEGER)`)

	tx := db.MustBegin()
	for i := 1; i <= 1500; i++ {
		tx.MustExec(`INSERT INTO seq VALUES (?)`, i)
	}
	require.NoError(t, tx.Commit())

	exec := NewExecutor(db, nil)
	rows, err := exec.Execute(context.Background(), "SELECT n FROM seq ORDER BY n", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, DefaultMaxRows)
	require.Equal(t, int64(1), rows[0]["n"])
	require.Equal(t, int64(DefaultMaxRows), rows[len(rows)-1]["n"])
}

func TestExecuteCustomMaxRows(t *testing.T) {
	db := openTestDB(t)
	db.MustExec(`CREATE TABLE seq (n INTEGER)`)
	for i := 1; i <= 10; i++ {
		db.MustExec(`INSERT INTO seq VALUES (?)`, i)
	}

	exec := NewExecutor(db, nil)
	rows, err := exec.Execute(context.Background(), "SELECT n FROM seq ORDER BY n", 0, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestExecuteBadSQLIsDatabaseError(t *testing.T) {
	db := openTestDB(t)
	exec := NewExecutor(db, nil)

	_, err := exec.Execute(context.Background(), "SELECT * FROM missing_table", 0, 0)
	require.Error(t, err)
	require.Equal(t, apperrors.KindDatabase, apperrors.KindOf(err))
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	db := openTestDB(t)
	exec := NewExecutor(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, "SELECT 1", time.Second, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	exec := NewExecutor(db, nil)
	require.NoError(t, exec.Ping(context.Background()))
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", float64(42)},
		{"3.14", 3.14},
		{"-7.5", -7.5},
		{"1e3", float64(1000)},
		{"", ""},
		{"  ", "  "},
		{" 42", float64(42)},
		{" 42 ", float64(42)},
		{"\t3.5\n", 3.5},
		{"books", "books"},
		{"2024-01-15", "2024-01-15"},
		{"12abc", "12abc"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			require.Equal(t, tt.want, parseNumeric(tt.in))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	require.Equal(t, float64(99), normalizeValue([]byte("99")))
	require.Equal(t, float64(42), normalizeValue(" 42 "))
	require.Equal(t, "hello", normalizeValue([]byte("hello")))
	require.Equal(t, int64(5), normalizeValue(int64(5)))
	require.Nil(t, normalizeValue(nil))
}
