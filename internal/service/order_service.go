package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"data-manager-service/internal/entity"
	"data-manager-service/internal/metrics"
	"data-manager-service/internal/repository"
)

const publishTimeout = 5 * time.Second

// OrderService records purchases.
type OrderService struct {
	orderRepo   *repository.OrderRepository
	publisher   EventPublisher
	idempotency IdempotencyStore
	maxAttempts int
	location    *time.Location
	now         func() time.Time
}

type Option func(*OrderService)

// WithPublisher announces every created order through p.
func WithPublisher(p EventPublisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

// WithIdempotency rejects requests that reuse a key already seen by store.
func WithIdempotency(store IdempotencyStore) Option {
	return func(s *OrderService) { s.idempotency = store }
}

// WithMaxAttempts bounds how often a unit of work is rerun after an order id
// collision.
func WithMaxAttempts(n int) Option {
	return func(s *OrderService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLocation sets the timezone that decides an order's date.
func WithLocation(loc *time.Location) Option {
	return func(s *OrderService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo *repository.OrderRepository, opts ...Option) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		maxAttempts: 3,
		location:    time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransactOrder creates an order for an existing customer and product.
//
// A missing customer or product is a normal outcome: the result carries
// success=false and the returned error matches repository.ErrNotFound.
// Store failures return success=false together with the classified error.
// In every failing case nothing is written.
func (s *OrderService) TransactOrder(ctx context.Context, req entity.TransactOrderRequest, idempotencyKey string) (entity.TransactionResult, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.CustomerID == "" || req.ProductID == "" {
		metrics.RecordOrderTransaction(metrics.OutcomeRejected)
		err := &ValidationError{Message: "Missing required parameters: CustomerID and ProductID"}
		return failed(err.Message), err
	}

	if s.idempotency != nil && idempotencyKey != "" {
		reserved, err := s.idempotency.Reserve(ctx, idempotencyKey)
		if err != nil {
			logger.Error().Err(err).Msgf("Error reserving idempotency key %s", idempotencyKey)
			metrics.RecordOrderTransaction(metrics.OutcomeFailed)
			return failed("Failed to create order"), err
		}
		if !reserved {
			logger.Warn().Msgf("Idempotency key %s already used", idempotencyKey)
			metrics.RecordOrderTransaction(metrics.OutcomeDuplicate)
			return failed("Duplicate request"), ErrDuplicateRequest
		}
	}

	order, err := s.createOrder(ctx, &entity.Order{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   req.EffectiveQuantity(),
		OrderDate:  entity.NewDate(s.now().In(s.location)),
	})
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)

		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			logger.Warn().Msg(notFound.Error())
			metrics.RecordOrderTransaction(metrics.OutcomeNotFound)
			return failed(notFound.Error()), err
		}
		logger.Error().Err(err).Msgf("Error creating order for customer %s, product %s", req.CustomerID, req.ProductID)
		metrics.RecordOrderTransaction(metrics.OutcomeFailed)
		return failed("Failed to create order"), err
	}

	logger.Info().Msgf("Order %s created successfully", order.OrderID)
	metrics.RecordOrderTransaction(metrics.OutcomeCreated)
	s.publishOrderEvent(ctx, order)

	return entity.TransactionResult{
		Success: true,
		Message: fmt.Sprintf("Order %s created successfully", order.OrderID),
		OrderID: order.OrderID,
	}, nil
}

// createOrder reruns the whole unit of work when the insert collides on the
// order id, which can only happen when the store did not honor the lock.
func (s *OrderService) createOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	for attempt := 1; ; attempt++ {
		created, err := s.orderRepo.CreateOrder(ctx, order)
		if err == nil || !repository.IsUniqueViolation(err) || attempt >= s.maxAttempts {
			return created, err
		}
		logger.Warn().Err(err).Msgf("Order id collision on attempt %d, retrying", attempt)
	}
}

// publishOrderEvent runs after commit: a failure is logged and the order
// stays created.
func (s *OrderService) publishOrderEvent(ctx context.Context, order *entity.Order) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		logger.Error().Err(err).Msgf("Error publishing event for order %s", order.OrderID)
	}
}

func (s *OrderService) releaseKey(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		logger.Error().Err(err).Msgf("Error releasing idempotency key %s", key)
	}
}

func failed(message string) entity.TransactionResult {
	return entity.TransactionResult{Success: false, Message: message}
}
