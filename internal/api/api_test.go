package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/chat"
	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/internal/sharding"
)

const testSecret = "test-secret"

type stubUsers map[string]*entity.User

func (u stubUsers) GetUser(_ context.Context, id string) (*entity.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, entity.ErrNotFound)
	}
	if !user.IsActive {
		return nil, entity.ErrInactiveUser
	}
	return user, nil
}

// stubOrders holds nothing: every lookup misses and every cart is empty.
type stubOrders struct{}

func (stubOrders) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error {
	return fn(ctx, stubTx{})
}

func (stubOrders) GetOrder(_ context.Context, orderID, _ string) (*entity.Order, error) {
	return nil, fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
}

func (stubOrders) ListOrders(context.Context, string) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

func (stubOrders) SetStatus(context.Context, string, entity.OrderStatus, entity.OrderStatus, entity.PaymentStatus) (bool, error) {
	return false, nil
}

type stubTx struct{ repository.CheckoutTx }

func (stubTx) ListCartLines(context.Context, string) ([]entity.CartLine, error) {
	return nil, nil
}

func (stubTx) GetOrderForUpdate(_ context.Context, orderID, _ string) (*entity.Order, error) {
	return nil, fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
}

type stubGateway struct{}

func (stubGateway) CreateIntent(context.Context, decimal.Decimal, string, map[string]string) (*entity.PaymentIntent, error) {
	return nil, entity.NewUpstreamError("payment gateway", fmt.Errorf("unavailable"))
}

func (stubGateway) GetIntent(context.Context, string) (*entity.IntentState, error) {
	return nil, entity.NewUpstreamError("payment gateway", fmt.Errorf("unavailable"))
}

type stubProducts struct{ repository.ProductStore }

func (stubProducts) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	if id == "p1" {
		return &entity.Product{ID: "p1", Name: "Hydraulic pump", Price: decimal.RequireFromString("120.00"), IsActive: true}, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
}

func newTestServer(t *testing.T) (*echo.Echo, *service.UserService) {
	t.Helper()
	users := stubUsers{
		"u1":    {ID: "u1", Email: "u1@example.com", Role: entity.RoleCustomer, IsActive: true},
		"admin": {ID: "admin", Email: "admin@example.com", Role: entity.RoleAdmin, IsActive: true},
		"gone":  {ID: "gone", Email: "gone@example.com", IsActive: false},
	}
	userService := service.NewUserService(nil, testSecret, time.Hour)

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Users:    NewUserHandler(userService),
		Products: NewProductHandler(service.NewCatalogService(stubProducts{}, nil)),
		Cart:     NewCartHandler(service.NewCartService(nil, stubProducts{})),
		Orders:   NewOrderHandler(service.NewOrderService(stubOrders{}, stubGateway{}, nil, nil, nil)),
		Chat:     NewChatHandler(service.NewChatService(nil, nil), chat.NewHub(sharding.NewShardRouter(2)), nil),
		Upload:   NewUploadHandler(service.NewUploadService(nil)),
	}, testSecret, users)
	return e, userService
}

func tokenFor(t *testing.T, users *service.UserService, user *entity.User) string {
	t.Helper()
	token, err := users.IssueToken(user)
	require.NoError(t, err)
	return token
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e, users := newTestServer(t)

	rec := do(e, http.MethodGet, "/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/orders", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/orders", tokenFor(t, users, &entity.User{ID: "gone"}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive user")

	rec = do(e, http.MethodGet, "/orders", tokenFor(t, users, &entity.User{ID: "deleted"}), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/orders", tokenFor(t, users, &entity.User{ID: "u1"}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOrderErrorsMapToStatus(t *testing.T) {
	e, users := newTestServer(t)
	token := tokenFor(t, users, &entity.User{ID: "u1"})

	rec := do(e, http.MethodPost, "/orders", token, `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"cart is empty"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/orders/o-404", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/orders/o-404/cancel", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/orders/o-404/confirm-payment", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing payment_intent_id")
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	e, users := newTestServer(t)

	rec := do(e, http.MethodDelete, "/products/p1", tokenFor(t, users, &entity.User{ID: "u1"}), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetProduct(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/products/p1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"120"`)

	rec = do(e, http.MethodGet, "/products/p2", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatSocketNeedsOwnToken(t *testing.T) {
	e, users := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/chat/ws/u1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/chat/ws/u1?token="+tokenFor(t, users, &entity.User{ID: "admin"}), "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/api/chat/ws/u1?token="+tokenFor(t, users, &entity.User{ID: "deleted"}), "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatSocketEchoes(t *testing.T) {
	e, users := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws/u1?token=" + tokenFor(t, users, &entity.User{ID: "u1"})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Echo: hi", string(reply))
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", entity.ErrNotFound):                 http.StatusNotFound,
		&entity.InsufficientStockError{ProductID: "p"}:          http.StatusBadRequest,
		entity.ErrPaymentNotSucceeded:                           http.StatusBadRequest,
		fmt.Errorf("x: %w", entity.ErrConflict):                 http.StatusConflict,
		entity.NewUpstreamError("stripe", fmt.Errorf("timeout")): http.StatusBadGateway,
		entity.ErrForbidden:                                     http.StatusForbidden,
		fmt.Errorf("driver: bad connection"):                    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(err), err.Error())
	}
}
