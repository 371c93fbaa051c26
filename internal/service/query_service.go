package service

import (
	"context"
	"os"
	"strings"

	"data-manager-service/internal/entity"
	"data-manager-service/internal/metrics"
	"data-manager-service/internal/repository"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// QueryService provides the read-only lookups.
type QueryService struct {
	customerRepo *repository.CustomerRepository
	productRepo  *repository.ProductRepository
	orderRepo    *repository.OrderRepository
	limit        int
}

// NewQueryService creates a new instance of QueryService. limit caps the
// number of rows of an unfiltered listing.
func NewQueryService(customerRepo *repository.CustomerRepository, productRepo *repository.ProductRepository, orderRepo *repository.OrderRepository, limit int) *QueryService {
	return &QueryService{
		customerRepo: customerRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		limit:        limit,
	}
}

// ListCustomers returns the customer with customerID, or all customers when
// customerID is empty. An unknown id yields an empty slice.
func (s *QueryService) ListCustomers(ctx context.Context, customerID string) ([]entity.Customer, error) {
	customers, err := s.customerRepo.ListCustomers(ctx, filter(customerID), s.limit)
	if err != nil {
		return nil, s.retrievalError("customers", err)
	}
	logger.Debug().Msgf("Found %d customers", len(customers))
	return customers, nil
}

// ListProducts returns the product with productID, or all products when
// productID is empty.
func (s *QueryService) ListProducts(ctx context.Context, productID string) ([]entity.Product, error) {
	products, err := s.productRepo.ListProducts(ctx, filter(productID), s.limit)
	if err != nil {
		return nil, s.retrievalError("products", err)
	}
	logger.Debug().Msgf("Found %d products", len(products))
	return products, nil
}

// ListOrders returns orders matching every non-empty field of f, most recent
// first.
func (s *QueryService) ListOrders(ctx context.Context, f entity.OrderFilter) ([]entity.Order, error) {
	f.CustomerID = strings.TrimSpace(f.CustomerID)
	f.ProductID = strings.TrimSpace(f.ProductID)
	orders, err := s.orderRepo.ListOrders(ctx, f, s.limit)
	if err != nil {
		return nil, s.retrievalError("orders", err)
	}
	logger.Debug().Msgf("Found %d orders", len(orders))
	return orders, nil
}

func (s *QueryService) retrievalError(resource string, err error) error {
	logger.Error().Err(err).Msgf("Error retrieving %s", resource)
	metrics.RecordQueryFailure(resource)
	return &RetrievalError{Resource: resource, Err: err}
}

func filter(id string) mo.Option[string] {
	return mo.EmptyableToOption(strings.TrimSpace(id))
}
