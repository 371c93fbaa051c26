package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderIDWidth is the minimum number of digits of an order id. Ids are plain
// decimal numbers, left padded with zeros: 0000001, 0000002, ...
const OrderIDWidth = 7

type Order struct {
	OrderID      string `json:"OrderID" db:"order_id"`
	CustomerID   string `json:"CustomerID" db:"customer_id"`
	ProductID    string `json:"ProductID" db:"product_id"`
	Quantity     int    `json:"Quantity" db:"quantity"`
	OrderDate    Date   `json:"OrderDate" db:"order_date"`
	CustomerName string `json:"CustomerName" db:"customer_name"`
	ProductName  string `json:"ProductName" db:"product_name"`
}

// OrderFilter narrows ListOrders. Empty fields do not filter.
type OrderFilter struct {
	CustomerID string
	ProductID  string
}

// TransactOrderRequest is the body of POST /TransactOrder.
type TransactOrderRequest struct {
	CustomerID string `json:"CustomerID"`
	ProductID  string `json:"ProductID"`
	Quantity   int    `json:"Quantity"`
}

// EffectiveQuantity returns the requested quantity, or 1 when it is not positive.
func (r TransactOrderRequest) EffectiveQuantity() int {
	if r.Quantity <= 0 {
		return 1
	}
	return r.Quantity
}

// TransactionResult is the outcome of a TransactOrder call.
type TransactionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

// FormatOrderID renders n with the fixed order id width.
func FormatOrderID(n int64) string {
	return fmt.Sprintf("%0*d", OrderIDWidth, n)
}

// ParseOrderID returns the numeric value of an order id.
func ParseOrderID(id string) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, fmt.Errorf("empty order id")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("order id %q is not numeric", id)
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("order id %q: %w", id, err)
	}
	return n, nil
}

/*
Schema for orders table:
CREATE TABLE orders (
	order_id VARCHAR(20) PRIMARY KEY,
	customer_id VARCHAR(20) NOT NULL,
	product_id VARCHAR(20) NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
	order_date DATE NOT NULL,
	FOREIGN KEY (customer_id) REFERENCES customers(customer_id),
	FOREIGN KEY (product_id) REFERENCES products(product_id)
);
*/
