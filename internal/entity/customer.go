package entity

type Customer struct {
	CustomerID string  `json:"CustomerID" db:"customer_id"`
	Name       string  `json:"Name" db:"name"`
	Email      string  `json:"Email" db:"email"`
	Phone      *string `json:"Phone" db:"phone"`
	Address    *string `json:"Address" db:"address"`
}

/*
Schema for customers table:
CREATE TABLE customers (
	customer_id VARCHAR(20) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50),
	address VARCHAR(255)
);
*/
