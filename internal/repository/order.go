package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"data-manager-service/internal/entity"
)

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db}
}

// ListOrders returns orders joined with customer and product names, most
// recent first. Filters in f are ANDed. Orders of the same day are ranked by
// id, longer ids first, so zero padded ids compare as numbers past the
// minimum width.
func (r *OrderRepository) ListOrders(ctx context.Context, f entity.OrderFilter, limit int) ([]entity.Order, error) {
	query := `
		SELECT o.order_id, o.customer_id, o.product_id, o.quantity, o.order_date,
			c.name AS customer_name, p.name AS product_name
		FROM orders o
		JOIN customers c ON o.customer_id = c.customer_id
		JOIN products p ON o.product_id = p.product_id`

	var conditions []string
	var args []any
	if f.CustomerID != "" {
		conditions = append(conditions, `o.customer_id = ?`)
		args = append(args, f.CustomerID)
	}
	if f.ProductID != "" {
		conditions = append(conditions, `o.product_id = ?`)
		args = append(args, f.ProductID)
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY o.order_date DESC, LENGTH(o.order_id) DESC, o.order_id DESC LIMIT ?`
	args = append(args, limit)

	orders := []entity.Order{}
	if err := r.db.Select(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder checks that the referenced customer and product exist, assigns
// the next order id and inserts the order, all in one transaction. A missing
// customer or product is a *NotFoundError and nothing is written.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	created := *order
	err := r.db.WithTx(ctx, nil, func(tx *Tx) error {
		if err := mustExist(ctx, tx, "Customer", `SELECT customer_id FROM customers WHERE customer_id = ?`, created.CustomerID); err != nil {
			return err
		}
		if err := mustExist(ctx, tx, "Product", `SELECT product_id FROM products WHERE product_id = ?`, created.ProductID); err != nil {
			return err
		}

		next, err := nextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}
		created.OrderID = entity.FormatOrderID(next)

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (order_id, customer_id, product_id, quantity, order_date) VALUES (?, ?, ?, ?, ?)`,
			created.OrderID, created.CustomerID, created.ProductID, created.Quantity, created.OrderDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func mustExist(ctx context.Context, tx *Tx, entityName, query, id string) error {
	var found string
	err := tx.Get(ctx, &found, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entityName, ID: id}
	}
	return err
}

// nextOrderNumber returns MAX(numeric order id) + 1. The caller's transaction
// holds the orders lock until commit, so concurrent callers cannot observe
// the same maximum.
func nextOrderNumber(ctx context.Context, tx *Tx) (int64, error) {
	if tx.dialect.lockOrders != "" {
		if _, err := tx.Exec(ctx, tx.dialect.lockOrders); err != nil {
			return 0, err
		}
	}
	var current sql.NullInt64
	if err := tx.Get(ctx, &current, tx.dialect.maxOrderNumberQuery()); err != nil {
		return 0, err
	}
	return current.Int64 + 1, nil
}
