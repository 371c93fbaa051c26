package migrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"data-manager-service/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	SeedCustomers = 20
	SeedProducts  = 30
)

var SeedCategories = []string{"Electronics", "Books", "Clothing", "Home", "Food", "Health"}

// RetryDelay is the pause between attempts of a failed batch.
var RetryDelay = time.Second

// Schema creates the customers, products and orders tables if they do not
// exist. The statements are accepted by postgres, mysql and sqlite.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	customer_id VARCHAR(20) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50),
	address VARCHAR(255)
);
CREATE TABLE IF NOT EXISTS products (
	product_id VARCHAR(20) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description VARCHAR(1000) NOT NULL DEFAULT '',
	price DECIMAL(10,2) NOT NULL CHECK (price >= 0),
	category VARCHAR(100)
);
CREATE TABLE IF NOT EXISTS orders (
	order_id VARCHAR(20) NOT NULL PRIMARY KEY,
	customer_id VARCHAR(20) NOT NULL,
	product_id VARCHAR(20) NOT NULL,
	quantity INT NOT NULL DEFAULT 1 CHECK (quantity > 0),
	order_date DATE NOT NULL,
	FOREIGN KEY (customer_id) REFERENCES customers (customer_id),
	FOREIGN KEY (product_id) REFERENCES products (product_id)
);
`

// Seed returns the sample data batch for dialect d. Rows that already exist
// are left untouched, so the batch can be run repeatedly.
func Seed(d repository.Dialect) string {
	customers := make([]string, 0, SeedCustomers)
	for i := 1; i <= SeedCustomers; i++ {
		id := fmt.Sprintf("%05d", i)
		customers = append(customers, fmt.Sprintf("('%s', 'Customer %s', 'customer%s@example.com', '+1-555-%03d-%04d', '%d Main St, City %d')",
			id, id, id, 100+i*37%900, 1000+i*613%9000, 100+i*271%9900, i*7%100))
	}

	products := make([]string, 0, SeedProducts)
	for i := 1; i <= SeedProducts; i++ {
		id := fmt.Sprintf("%05d", i)
		price := fmt.Sprintf("%d.%02d", 10+i*331%990, i*17%100)
		products = append(products, fmt.Sprintf("('%s', 'Product %s', 'This is a description for product %s', %s, '%s')",
			id, id, id, price, SeedCategories[(i-1)%len(SeedCategories)]))
	}

	return d.InsertIgnore("customers", "customer_id, name, email, phone, address", strings.Join(customers, ",\n\t")) + ";\n" +
		d.InsertIgnore("products", "product_id, name, description, price, category", strings.Join(products, ",\n\t")) + ";\n"
}

// Apply runs each script as a single batch. A failing batch is retried up to
// retries more times before its error is returned.
func Apply(ctx context.Context, db *repository.DB, retries int, scripts ...string) error {
	for n, script := range scripts {
		err := db.ExecScript(ctx, script)
		for i := 0; err != nil && i < retries; i++ {
			log.Warn().Err(err).Msgf("Retry %d: batch %d failed", i+1, n+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryDelay):
			}
			err = db.ExecScript(ctx, script)
		}
		if err != nil {
			return fmt.Errorf("batch %d: %w", n+1, err)
		}
		log.Info().Msgf("Batch %d applied", n+1)
	}
	return nil
}
