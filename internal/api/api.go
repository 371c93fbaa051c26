package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"data-manager-service/internal/entity"
	"data-manager-service/internal/repository"
	"data-manager-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
)

const (
	OpGetCustomers  = "GetCustomers"
	OpGetProducts   = "GetProducts"
	OpGetOrders     = "GetOrders"
	OpTransactOrder = "TransactOrder"

	HeaderIdempotencyKey = "Idempotency-Key"

	operationKey = "operation"
)

var operations = map[string]bool{
	OpGetCustomers:  true,
	OpGetProducts:   true,
	OpGetOrders:     true,
	OpTransactOrder: true,
}

// Params is the parameter bag of an operation, whichever binding it came from.
type Params struct {
	CustomerID     string
	ProductID      string
	Quantity       int
	IdempotencyKey string
}

type Handler struct {
	queryService *service.QueryService
	orderService *service.OrderService
}

func NewHandler(queryService *service.QueryService, orderService *service.OrderService) *Handler {
	return &Handler{queryService: queryService, orderService: orderService}
}

// Dispatch runs operation op and returns the HTTP status and envelope.
func (h *Handler) Dispatch(ctx context.Context, op string, p Params) (int, entity.Response) {
	switch op {
	case OpGetCustomers:
		customers, err := h.queryService.ListCustomers(ctx, p.CustomerID)
		if err != nil {
			return http.StatusInternalServerError, entity.Fault("Failed to retrieve customers", err)
		}
		return http.StatusOK, entity.Ok(customers)

	case OpGetProducts:
		products, err := h.queryService.ListProducts(ctx, p.ProductID)
		if err != nil {
			return http.StatusInternalServerError, entity.Fault("Failed to retrieve products", err)
		}
		return http.StatusOK, entity.Ok(products)

	case OpGetOrders:
		orders, err := h.queryService.ListOrders(ctx, entity.OrderFilter{CustomerID: p.CustomerID, ProductID: p.ProductID})
		if err != nil {
			return http.StatusInternalServerError, entity.Fault("Failed to retrieve orders", err)
		}
		return http.StatusOK, entity.Ok(orders)

	case OpTransactOrder:
		if strings.TrimSpace(p.CustomerID) == "" || strings.TrimSpace(p.ProductID) == "" {
			return http.StatusBadRequest, entity.Fail("Missing required parameters: CustomerID and ProductID")
		}
		req := entity.TransactOrderRequest{CustomerID: p.CustomerID, ProductID: p.ProductID, Quantity: p.Quantity}
		result, err := h.orderService.TransactOrder(ctx, req, p.IdempotencyKey)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				return status, entity.Fault(result.Message, err)
			}
			return status, entity.Fail(result.Message)
		}
		return http.StatusCreated, entity.Response{Success: true, Message: result.Message, OrderID: result.OrderID}

	default:
		return http.StatusBadRequest, entity.Fail(fmt.Sprintf("Unsupported operation: %s", op))
	}
}

func statusFor(err error) int {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Operation serves the path binding --> /GetCustomers?CustomerID=, /GetProducts?ProductID=,
// /GetOrders?CustomerID=&ProductID=, POST /TransactOrder {CustomerID, ProductID, Quantity}
func (h *Handler) Operation(c echo.Context) error {
	p := Params{
		CustomerID:     c.QueryParam("CustomerID"),
		ProductID:      c.QueryParam("ProductID"),
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	}
	op := c.Param("operation")
	if op == OpTransactOrder && c.Request().Method != http.MethodPost {
		c.Set(operationKey, op)
		return c.JSON(http.StatusMethodNotAllowed, entity.Fail("TransactOrder requires POST"))
	}
	if c.Request().Method == http.MethodPost {
		body, err := readBody(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, entity.Fail("Invalid request payload"))
		}
		bindJSON(body, &p)
	}
	return h.respond(c, op, p)
}

// Invoke serves the payload binding --> POST / {"action": "GetOrders", "customerId": "00001"}
func (h *Handler) Invoke(c echo.Context) error {
	body, err := readBody(c)
	if err != nil || len(body) == 0 {
		return c.JSON(http.StatusBadRequest, entity.Fail("Invalid request payload"))
	}
	op := firstString(body, "action", "operation")
	if op == "" {
		return c.JSON(http.StatusBadRequest, entity.Fail("Missing action parameter"))
	}
	p := Params{IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey)}
	bindJSON(body, &p)
	return h.respond(c, op, p)
}

func (h *Handler) respond(c echo.Context, op string, p Params) error {
	if operations[op] {
		c.Set(operationKey, op)
	}
	status, resp := h.Dispatch(c.Request().Context(), op, p)
	return c.JSON(status, resp)
}

// Health --> /health
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "data-manager-service",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// readBody returns the request body, which is either empty or valid JSON.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	return body, nil
}

// bindJSON copies the known parameters from body into p. Both the wire
// names (CustomerID) and the camel case names (customerId) are accepted.
func bindJSON(body []byte, p *Params) {
	if len(body) == 0 {
		return
	}
	if v := firstString(body, "CustomerID", "customerId"); v != "" {
		p.CustomerID = v
	}
	if v := firstString(body, "ProductID", "productId"); v != "" {
		p.ProductID = v
	}
	for _, key := range []string{"Quantity", "quantity"} {
		if q := gjson.GetBytes(body, key); q.Exists() {
			p.Quantity = int(q.Int())
			break
		}
	}
}

func firstString(body []byte, keys ...string) string {
	for _, key := range keys {
		if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}
