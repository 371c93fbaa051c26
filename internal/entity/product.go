package entity

// Product is the wire form of a catalog row. Price is converted from the
// store's decimal column.
type Product struct {
	ProductID   string  `json:"ProductID"`
	Name        string  `json:"Name"`
	Description string  `json:"Description"`
	Price       float64 `json:"Price"`
	Category    *string `json:"Category"`
}

/*
Schema for products table:
CREATE TABLE products (
	product_id VARCHAR(20) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description VARCHAR(1000) NOT NULL DEFAULT '',
	price DECIMAL(10,2) NOT NULL CHECK (price >= 0),
	category VARCHAR(100)
);
*/
