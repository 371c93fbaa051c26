package repository

import (
	"context"

	"data-manager-service/internal/entity"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db}
}

type productRow struct {
	ProductID   string          `db:"product_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Category    *string         `db:"category"`
}

func (p productRow) toEntity() entity.Product {
	return entity.Product{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
	}
}

// ListProducts returns the product with the given id, or up to limit
// products when no id is given.
func (r *ProductRepository) ListProducts(ctx context.Context, id mo.Option[string], limit int) ([]entity.Product, error) {
	query := `SELECT product_id, name, description, price, category FROM products`
	var args []any
	if v, ok := id.Get(); ok {
		query += ` WHERE product_id = ?`
		args = append(args, v)
	}
	query += ` ORDER BY product_id LIMIT ?`
	args = append(args, limit)

	var rows []productRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row productRow, _ int) entity.Product {
		return row.toEntity()
	}), nil
}
