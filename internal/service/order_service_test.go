package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"data-manager-service/internal/entity"
	"data-manager-service/internal/metrics"
	"data-manager-service/internal/repository"
	"data-manager-service/internal/service"
	"data-manager-service/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService(t *testing.T, opts ...service.Option) (*service.OrderService, *repository.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return service.NewOrderService(repository.NewOrderRepository(db), opts...), db
}

func TestTransactOrderCreatesOrder(t *testing.T) {
	svc, db := newOrderService(t)
	ctx := context.Background()
	before := promtest.ToFloat64(metrics.OrderTransactions(metrics.OutcomeCreated))

	result, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00002"}, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "0000001", result.OrderID)
	assert.Equal(t, "Order 0000001 created successfully", result.Message)

	orders, err := repository.NewOrderRepository(db).ListOrders(ctx, entity.OrderFilter{}, 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "00001", orders[0].CustomerID)
	assert.Equal(t, "00002", orders[0].ProductID)
	assert.Equal(t, 1, orders[0].Quantity)

	assert.Equal(t, before+1, promtest.ToFloat64(metrics.OrderTransactions(metrics.OutcomeCreated)))
}

func TestTransactOrderIDsIncrease(t *testing.T) {
	svc, db := newOrderService(t)
	ctx := context.Background()
	testutil.InsertOrder(t, db, "0000009", "00001", "00001", 1, "2024-01-01")

	var ids []string
	for i := 0; i < 3; i++ {
		result, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001", Quantity: i + 1}, "")
		require.NoError(t, err)
		ids = append(ids, result.OrderID)
	}
	assert.Equal(t, []string{"0000010", "0000011", "0000012"}, ids)
	for _, id := range ids {
		assert.Len(t, id, entity.OrderIDWidth)
	}
}

func TestTransactOrderKeepsRequestedQuantity(t *testing.T) {
	svc, db := newOrderService(t)
	ctx := context.Background()

	_, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001", Quantity: 4}, "")
	require.NoError(t, err)

	orders, err := repository.NewOrderRepository(db).ListOrders(ctx, entity.OrderFilter{}, 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 4, orders[0].Quantity)
}

func TestTransactOrderMissingParameters(t *testing.T) {
	svc, db := newOrderService(t)
	ctx := context.Background()

	for _, req := range []entity.TransactOrderRequest{
		{},
		{CustomerID: "00001"},
		{ProductID: "00001"},
		{CustomerID: "  ", ProductID: "00001"},
	} {
		result, err := svc.TransactOrder(ctx, req, "")
		var validation *service.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.False(t, result.Success)
		assert.Equal(t, "Missing required parameters: CustomerID and ProductID", result.Message)
	}
	assert.Zero(t, testutil.CountOrders(t, db))
}

func TestTransactOrderUnknownReferences(t *testing.T) {
	svc, db := newOrderService(t)
	ctx := context.Background()
	before := promtest.ToFloat64(metrics.OrderTransactions(metrics.OutcomeNotFound))

	result, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "99999", ProductID: "00001"}, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, result.Success)
	assert.Equal(t, "Customer 99999 not found", result.Message)
	assert.Empty(t, result.OrderID)

	result, err = svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "99999"}, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, result.Message, "not found")

	assert.Zero(t, testutil.CountOrders(t, db))
	assert.Equal(t, before+2, promtest.ToFloat64(metrics.OrderTransactions(metrics.OutcomeNotFound)))
}

func TestTransactOrderConcurrentIDsAreUnique(t *testing.T) {
	// Several pooled connections and a single attempt: only the lock taken
	// inside the unit of work keeps two orders from reading the same maximum.
	db := testutil.NewSQLiteDB(t, testutil.WithConns(8))
	svc := service.NewOrderService(repository.NewOrderRepository(db), service.WithMaxAttempts(1))
	const n = 50

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ids   []string
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			req := entity.TransactOrderRequest{
				CustomerID: fmt.Sprintf("%05d", i%20+1),
				ProductID:  fmt.Sprintf("%05d", i%30+1),
			}
			result, err := svc.TransactOrder(context.Background(), req, "")
			if assert.NoError(t, err) {
				mu.Lock()
				ids = append(ids, result.OrderID)
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Len(t, ids, n)
	sort.Strings(ids)
	for i, id := range ids {
		assert.Equal(t, entity.FormatOrderID(int64(i+1)), id)
	}
	assert.Equal(t, n, testutil.CountOrders(t, db))
}

func TestTransactOrderDatesInConfiguredLocation(t *testing.T) {
	// 20:00 UTC on Feb 29 is already Mar 1 in UTC+9.
	now := time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)
	tokyo := time.FixedZone("UTC+9", 9*3600)

	svc, db := newOrderService(t,
		service.WithClock(func() time.Time { return now }),
		service.WithLocation(tokyo),
	)
	ctx := context.Background()

	_, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001"}, "")
	require.NoError(t, err)

	orders, err := repository.NewOrderRepository(db).ListOrders(ctx, entity.OrderFilter{}, 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "2024-03-01", orders[0].OrderDate.String())
}

func TestTransactOrderRollsBackOnWriteFailure(t *testing.T) {
	db, mock := testutil.NewMockDB(t, "postgres")
	svc := service.NewOrderService(repository.NewOrderRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT customer_id FROM customers`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow("00001"))
	mock.ExpectQuery(`SELECT product_id FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("00002"))
	mock.ExpectExec(`LOCK TABLE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX`).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO orders`).WillReturnError(&pq.Error{Code: "23514", Message: "check violation"})
	mock.ExpectRollback()

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00002"}, "")
	require.Error(t, err)
	assert.True(t, repository.IsConstraint(err))
	assert.False(t, result.Success)
	assert.Equal(t, "Failed to create order", result.Message)
	assert.Empty(t, result.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectCreateAttempt(mock sqlmock.Sqlmock, maxID int64, insertErr error) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT customer_id FROM customers`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow("00001"))
	mock.ExpectQuery(`SELECT product_id FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("00002"))
	mock.ExpectExec(`LOCK TABLE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX`).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(maxID))
	insert := mock.ExpectExec(`INSERT INTO orders`).WithArgs(entity.FormatOrderID(maxID+1), "00001", "00002", 1, sqlmock.AnyArg())
	if insertErr != nil {
		insert.WillReturnError(insertErr)
		mock.ExpectRollback()
		return
	}
	insert.WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestTransactOrderRetriesOnIDCollision(t *testing.T) {
	db, mock := testutil.NewMockDB(t, "postgres")
	svc := service.NewOrderService(repository.NewOrderRepository(db), service.WithMaxAttempts(3))

	expectCreateAttempt(mock, 4, &pq.Error{Code: "23505"})
	expectCreateAttempt(mock, 5, nil)

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00002"}, "")
	require.NoError(t, err)
	assert.Equal(t, "0000006", result.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactOrderGivesUpAfterMaxAttempts(t *testing.T) {
	db, mock := testutil.NewMockDB(t, "postgres")
	svc := service.NewOrderService(repository.NewOrderRepository(db), service.WithMaxAttempts(2))

	expectCreateAttempt(mock, 4, &pq.Error{Code: "23505"})
	expectCreateAttempt(mock, 4, &pq.Error{Code: "23505"})

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00002"}, "")
	assert.True(t, repository.IsUniqueViolation(err))
	assert.False(t, result.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactOrderPublishesCreatedOrder(t *testing.T) {
	publisher := &fakePublisher{}
	svc, _ := newOrderService(t, service.WithPublisher(publisher))

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00003", ProductID: "00004", Quantity: 2}, "")
	require.NoError(t, err)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, result.OrderID, published[0].OrderID)
	assert.Equal(t, 2, published[0].Quantity)
}

func TestTransactOrderPublishFailureKeepsOrder(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc, db := newOrderService(t, service.WithPublisher(publisher))

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001"}, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, testutil.CountOrders(t, db))
}

func TestTransactOrderNotPublishedOnFailure(t *testing.T) {
	publisher := &fakePublisher{}
	svc, _ := newOrderService(t, service.WithPublisher(publisher))

	_, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "99999", ProductID: "00001"}, "")
	require.Error(t, err)
	assert.Empty(t, publisher.published())
}

func TestTransactOrderIdempotencyKey(t *testing.T) {
	store := newFakeStore()
	svc, db := newOrderService(t, service.WithIdempotency(store))
	ctx := context.Background()
	req := entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001"}

	first, err := svc.TransactOrder(ctx, req, "key-1")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := svc.TransactOrder(ctx, req, "key-1")
	assert.ErrorIs(t, err, service.ErrDuplicateRequest)
	assert.False(t, second.Success)
	assert.Equal(t, "Duplicate request", second.Message)

	_, err = svc.TransactOrder(ctx, req, "")
	require.NoError(t, err, "requests without a key are not deduplicated")

	assert.Equal(t, 2, testutil.CountOrders(t, db))
}

func TestTransactOrderReleasesKeyOnFailure(t *testing.T) {
	store := newFakeStore()
	svc, _ := newOrderService(t, service.WithIdempotency(store))
	ctx := context.Background()

	_, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "99999", ProductID: "00001"}, "key-2")
	require.Error(t, err)
	assert.False(t, store.has("key-2"))

	result, err := svc.TransactOrder(ctx, entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001"}, "key-2")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, store.has("key-2"))
}

func TestTransactOrderIdempotencyStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("redis unavailable")
	svc, db := newOrderService(t, service.WithIdempotency(store))

	result, err := svc.TransactOrder(context.Background(), entity.TransactOrderRequest{CustomerID: "00001", ProductID: "00001"}, "key-3")
	require.Error(t, err)
	assert.Equal(t, "Failed to create order", result.Message)
	assert.Zero(t, testutil.CountOrders(t, db))
}
