// Package testutil provides database fixtures shared by the package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"data-manager-service/internal/config"
	"data-manager-service/internal/entity"
	"data-manager-service/internal/repository"
	"data-manager-service/migrations"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type sqliteOptions struct {
	conns int
}

// Option tunes the sqlite fixture.
type Option func(*sqliteOptions)

// WithConns lets the pool open up to n connections, so transactions from
// different goroutines run against the file at the same time.
func WithConns(n int) Option {
	return func(o *sqliteOptions) {
		if n > 0 {
			o.conns = n
		}
	}
}

// NewSQLiteDB opens a fresh sqlite file database with the schema and the
// sample customers and products loaded. The pool holds a single connection
// unless WithConns says otherwise.
func NewSQLiteDB(t testing.TB, opts ...Option) *repository.DB {
	t.Helper()

	o := sqliteOptions{conns: 1}
	for _, opt := range opts {
		opt(&o)
	}

	dsn, err := config.Database{Driver: "sqlite3", Name: filepath.Join(t.TempDir(), "data.db")}.DSN()
	require.NoError(t, err)

	raw, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	raw.SetMaxOpenConns(o.conns)
	t.Cleanup(func() { _ = raw.Close() })

	db, err := repository.New(raw)
	require.NoError(t, err)
	require.NoError(t, migrations.Apply(context.Background(), db, 0, migrations.Schema, migrations.Seed(db.Dialect())))
	return db
}

// NewMockDB returns a data access layer over sqlmock that speaks driverName's
// dialect.
func NewMockDB(t testing.TB, driverName string) (*repository.DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	db, err := repository.New(sqlx.NewDb(raw, driverName))
	require.NoError(t, err)
	return db, mock
}

// InsertOrder writes an order row directly, bypassing id allocation.
func InsertOrder(t testing.TB, db *repository.DB, id, customerID, productID string, quantity int, date string) {
	t.Helper()

	d, err := entity.ParseDate(date)
	require.NoError(t, err)
	_, err = db.Exec(context.Background(),
		`INSERT INTO orders (order_id, customer_id, product_id, quantity, order_date) VALUES (?, ?, ?, ?, ?)`,
		id, customerID, productID, quantity, d)
	require.NoError(t, err)
}

// CountOrders returns the number of rows in orders.
func CountOrders(t testing.TB, db *repository.DB) int {
	t.Helper()

	var n int
	require.NoError(t, db.Get(context.Background(), &n, `SELECT COUNT(*) FROM orders`))
	return n
}
