package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	"github.com/angelmondragon/harvestlink-backend/pkg/auth"
	"github.com/angelmondragon/harvestlink-backend/pkg/config"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
)

type stubOrders struct {
	creates int
}

func (s *stubOrders) Create(_ context.Context, input orders.CreateInput) (*orders.OrderView, error) {
	s.creates++
	return &orders.OrderView{ID: uuid.New(), BuyerID: input.BuyerID, Quantity: input.Quantity}, nil
}

func (s *stubOrders) Get(_ context.Context, orderID, actorID uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{ID: orderID, BuyerID: actorID}, nil
}

func (s *stubOrders) ListBuyerOrders(context.Context, uuid.UUID, pagination.Params) (*pagination.Page[orders.OrderView], error) {
	return &pagination.Page[orders.OrderView]{Items: []orders.OrderView{}}, nil
}

func (s *stubOrders) Cancel(_ context.Context, orderID, _ uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{ID: orderID, DeliveryStatus: enums.DeliveryStatusCancelled}, nil
}

func (s *stubOrders) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (s *stubOrders) ConfirmDelivery(_ context.Context, orderID, _ uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{ID: orderID, DeliveryStatus: enums.DeliveryStatusDelivered}, nil
}

type stubPayments struct {
	callbacks int
}

func (s *stubPayments) Initiate(_ context.Context, input payments.InitiateInput) (*payments.InitiateResult, error) {
	return &payments.InitiateResult{OrderID: input.OrderID, Amount: input.Amount, Status: "pending"}, nil
}

func (s *stubPayments) ApplyCallback(_ context.Context, referenceNo, _ string) (*payments.CallbackResult, error) {
	s.callbacks++
	return &payments.CallbackResult{ReferenceNo: referenceNo, Outcome: payments.OutcomeSucceeded}, nil
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fixture struct {
	handler  http.Handler
	orders   *stubOrders
	payments *stubPayments
	cfg      *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "harvestlink-test"},
	}
	reg := prometheus.NewRegistry()
	f := &fixture{orders: &stubOrders{}, payments: &stubPayments{}, cfg: cfg}
	f.handler = NewRouter(cfg, logger.Nop(), Infra{
		Idempotency: &memoryStore{data: map[string]string{}},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	}, Services{
		Orders:   f.orders,
		Payments: f.payments,
	})
	return f
}

func (f *fixture) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(f.cfg.JWT, time.Now(), time.Hour, auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f *fixture) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func orderBody() string {
	return `{"productId":"` + uuid.NewString() + `","quantity":2,"deliveryDate":"2030-01-01"}`
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(http.MethodGet, "/health/live", "", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/health/ready", "", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	resp := f.do(http.MethodGet, "/metrics", "", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "http_requests_total") {
		t.Fatalf("expected request metrics in exposition")
	}
}

func TestOrdersRequireAuthentication(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(http.MethodGet, "/api/v1/orders", "", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateOrderRequiresBuyerRoleAndReplaysKeyedRetries(t *testing.T) {
	f := newFixture(t)

	seller := f.token(t, enums.UserRoleSeller)
	if resp := f.do(http.MethodPost, "/api/v1/orders", seller, orderBody(), map[string]string{"Idempotency-Key": "k1"}); resp.Code != http.StatusForbidden {
		t.Fatalf("seller: expected 403 got %d", resp.Code)
	}

	buyer := f.token(t, enums.UserRoleBuyer)
	if resp := f.do(http.MethodPost, "/api/v1/orders", buyer, orderBody(), nil); resp.Code != http.StatusCreated {
		t.Fatalf("without key: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	body := orderBody()
	first := f.do(http.MethodPost, "/api/v1/orders", buyer, body, map[string]string{"Idempotency-Key": "k2"})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	replay := f.do(http.MethodPost, "/api/v1/orders", buyer, body, map[string]string{"Idempotency-Key": "k2"})
	if replay.Code != http.StatusCreated || replay.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replay, got %d", replay.Code)
	}
	if f.orders.creates != 2 {
		t.Fatalf("expected two creates, got %d", f.orders.creates)
	}
}

func TestGetOrderAllowsBuyerAndSeller(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/orders/" + uuid.NewString()
	for _, role := range []enums.UserRole{enums.UserRoleBuyer, enums.UserRoleSeller} {
		if resp := f.do(http.MethodGet, path, f.token(t, role), "", nil); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", role, resp.Code)
		}
	}
	if resp := f.do(http.MethodGet, path, f.token(t, enums.UserRoleAdmin), "", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("admin: expected 403 got %d", resp.Code)
	}
}

func TestOrderActionRoutes(t *testing.T) {
	f := newFixture(t)
	buyer := f.token(t, enums.UserRoleBuyer)
	orderPath := "/api/v1/orders/" + uuid.NewString()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, orderPath},
		{http.MethodDelete, orderPath + "/delete"},
		{http.MethodPut, orderPath + "/confirm-delivery"},
	}
	for _, tc := range cases {
		if resp := f.do(tc.method, tc.path, buyer, "", nil); resp.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200 got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestRequestsAreSellerOnly(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(http.MethodGet, "/api/v1/requests", f.token(t, enums.UserRoleBuyer), "", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPaymentCallbackNeedsNoToken(t *testing.T) {
	f := newFixture(t)
	resp := f.do(http.MethodPost, "/api/v1/payments/callback", "", `{"reference_no":"HL-20260310-ABCDEF12","response_description":"Successful"}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if f.payments.callbacks != 1 {
		t.Fatalf("expected callback applied once, got %d", f.payments.callbacks)
	}
}

func TestInitiatePaymentRoute(t *testing.T) {
	f := newFixture(t)
	body := `{"orderId":"` + uuid.NewString() + `","amount":"10.00","phone":"+254700000001"}`
	resp := f.do(http.MethodPost, "/api/v1/payments", f.token(t, enums.UserRoleBuyer), body, map[string]string{"Idempotency-Key": "pay-1"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
}
