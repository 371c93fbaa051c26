package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect holds the statements that differ between the supported stores.
// Queries elsewhere are written with '?' placeholders and rebound per driver.
type Dialect struct {
	Name     string
	BindType int

	// orderNumber casts order_id to an integer, numericOnly filters out ids
	// that are not plain digits.
	orderNumber string
	numericOnly string

	// lockOrders serializes next-id allocation where the MAX query alone
	// cannot take the lock (postgres rejects FOR UPDATE with aggregates).
	lockOrders string
	forUpdate  string

	insertIgnore string
	onConflict   string
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:         "postgres",
		orderNumber:  "CAST(order_id AS BIGINT)",
		numericOnly:  "order_id ~ '^[0-9]+$'",
		lockOrders:   "LOCK TABLE orders IN SHARE ROW EXCLUSIVE MODE",
		insertIgnore: "INSERT INTO",
		onConflict:   " ON CONFLICT DO NOTHING",
	},
	"mysql": {
		Name:         "mysql",
		orderNumber:  "CAST(order_id AS UNSIGNED)",
		numericOnly:  "order_id REGEXP '^[0-9]+$'",
		forUpdate:    " FOR UPDATE",
		insertIgnore: "INSERT IGNORE INTO",
	},
	// sqlite serializes writers: transactions are opened with BEGIN IMMEDIATE.
	"sqlite3": {
		Name:         "sqlite3",
		orderNumber:  "CAST(order_id AS INTEGER)",
		numericOnly:  "order_id <> '' AND order_id NOT GLOB '*[^0-9]*'",
		insertIgnore: "INSERT OR IGNORE INTO",
	},
}

// DialectFor returns the dialect registered for a database/sql driver name.
func DialectFor(driverName string) (Dialect, error) {
	d, ok := dialects[driverName]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driverName)
	}
	d.BindType = sqlx.BindType(driverName)
	return d, nil
}

func (d Dialect) maxOrderNumberQuery() string {
	return fmt.Sprintf("SELECT MAX(%s) FROM orders WHERE %s%s", d.orderNumber, d.numericOnly, d.forUpdate)
}

// InsertIgnore builds an insert that skips rows whose key already exists.
func (d Dialect) InsertIgnore(table, columns, values string) string {
	return fmt.Sprintf("%s %s (%s) VALUES %s%s", d.insertIgnore, table, columns, values, d.onConflict)
}
