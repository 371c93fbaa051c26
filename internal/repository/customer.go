package repository

import (
	"context"

	"data-manager-service/internal/entity"

	"github.com/samber/mo"
)

type CustomerRepository struct {
	db *DB
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db}
}

// ListCustomers returns the customer with the given id, or up to limit
// customers when no id is given.
func (r *CustomerRepository) ListCustomers(ctx context.Context, id mo.Option[string], limit int) ([]entity.Customer, error) {
	query := `SELECT customer_id, name, email, phone, address FROM customers`
	var args []any
	if v, ok := id.Get(); ok {
		query += ` WHERE customer_id = ?`
		args = append(args, v)
	}
	query += ` ORDER BY customer_id LIMIT ?`
	args = append(args, limit)

	customers := []entity.Customer{}
	if err := r.db.Select(ctx, &customers, query, args...); err != nil {
		return nil, err
	}
	return customers, nil
}
