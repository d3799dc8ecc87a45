package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/catalog"
	"github.com/zimmart/storefront-go/internal/idempotency"
	"github.com/zimmart/storefront-go/internal/order"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    int
	lastReq  order.Request
	submitFn func(ctx context.Context, req order.Request) (*order.Order, error)
}

func (f *fakeSubmitter) Submit(ctx context.Context, req order.Request) (*order.Order, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	return f.submitFn(ctx, req)
}

type fakeRepo struct {
	getByIDFunc func(ctx context.Context, orderID string) (*order.Order, error)
}

func (f *fakeRepo) Create(ctx context.Context, o *order.Order) error {
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, orderID)
	}
	return nil, nil
}

type memoryStore struct {
	mu       sync.Mutex
	records  map[string]idempotency.Record
	claimErr error
	released []string
}

func (m *memoryStore) Claim(ctx context.Context, key, fingerprint string) (idempotency.Record, bool, error) {
	if m.claimErr != nil {
		return idempotency.Record{}, false, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		return rec, false, nil
	}
	if m.records == nil {
		m.records = map[string]idempotency.Record{}
	}
	m.records[key] = idempotency.Record{Fingerprint: fingerprint}
	return idempotency.Record{}, true, nil
}

func (m *memoryStore) Complete(ctx context.Context, key, fingerprint string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = idempotency.Record{Fingerprint: fingerprint, Body: body}
	return nil
}

func (m *memoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	m.released = append(m.released, key)
	return nil
}

const testOrderID = "8c9e6f1e-0000-4000-8000-000000000001"

const validBody = `{
	"buyer_name": "Tariro",
	"buyer_phone": "0772123456",
	"city": "Bulawayo",
	"address": "12 Main St",
	"payment_method": "EcoCash",
	"items": [{"product_id": "P1", "quantity": 2}]
}`

func createdOrder(req order.Request) *order.Order {
	return &order.Order{
		ID:            "8c9e6f1e-0000-4000-8000-000000000001",
		Number:        1001,
		BuyerName:     req.BuyerName,
		PaymentMethod: req.PaymentMethod,
		Subtotal:      decimal.RequireFromString("15"),
		DeliveryFee:   decimal.RequireFromString("3"),
		Total:         decimal.RequireFromString("18"),
		Status:        order.StatusCreated,
	}
}

func newTestRouter(sub OrderSubmitter, repo order.Repository, store idempotency.Store) http.Handler {
	logger := zap.NewNop()
	return NewRouter(NewOrderHandler(sub, repo, store, logger), NewWebhookHandler("verify-me", logger), logger)
}

func postOrder(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSubmitOrder_Success(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		return createdOrder(req), nil
	}}
	router := newTestRouter(sub, &fakeRepo{}, nil)

	rr := postOrder(t, router, validBody, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_usd":18.00`)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, float64(1001), resp["order_number"])
	assert.Equal(t, float64(18), resp["total_usd"])
	assert.Equal(t, "EcoCash", resp["payment_method"])
	assert.Equal(t, "Created", resp["status"])
	assert.NotEmpty(t, resp["order_id"])

	assert.Equal(t, order.Request{
		BuyerName:     "Tariro",
		BuyerPhone:    "0772123456",
		City:          "Bulawayo",
		Address:       "12 Main St",
		PaymentMethod: order.PaymentEcoCash,
		Items:         []order.RequestLine{{ProductID: "P1", Quantity: 2}},
	}, sub.lastReq)
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid request", fmt.Errorf("%w: missing city", order.ErrInvalidRequest), http.StatusBadRequest, "Missing or invalid required fields"},
		{"unresolvable reference", fmt.Errorf("resolve products: %w: P9", catalog.ErrNotFound), http.StatusBadRequest, "Some products not found"},
		{"persistence failure", errors.New("persist order: insert order_item: pq: deadlock detected"), http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
				return nil, tt.err
			}}
			rr := postOrder(t, newTestRouter(sub, &fakeRepo{}, nil), validBody, nil)

			require.Equal(t, tt.wantStatus, rr.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantMsg, resp["error"])
			assert.NotContains(t, resp["error"], "pq:")
		})
	}
}

func TestSubmitOrder_MalformedJSON(t *testing.T) {
	sub := &fakeSubmitter{}
	router := newTestRouter(sub, &fakeRepo{}, nil)

	for _, body := range []string{`{`, `{"items":[{"product_id":"P1","quantity":1.5}]}`, `[]`} {
		rr := postOrder(t, router, body, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Zero(t, sub.calls)
}

func TestSubmitOrder_IdempotentReplay(t *testing.T) {
	var n int64
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		n++
		o := createdOrder(req)
		o.Number = 1000 + n
		return o, nil
	}}
	store := &memoryStore{}
	router := newTestRouter(sub, &fakeRepo{}, store)
	headers := map[string]string{idempotency.HeaderKey: "checkout-abc"}

	first := postOrder(t, router, validBody, headers)
	second := postOrder(t, router, validBody, headers)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, sub.calls)

	third := postOrder(t, router, validBody, map[string]string{idempotency.HeaderKey: "checkout-other"})
	require.Equal(t, http.StatusOK, third.Code)
	assert.NotEqual(t, first.Body.String(), third.Body.String())
	assert.Equal(t, 2, sub.calls)
}

func TestSubmitOrder_ReplayStoreDownStillSubmits(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		return createdOrder(req), nil
	}}
	store := &memoryStore{claimErr: errors.New("redis: connection refused")}
	router := newTestRouter(sub, &fakeRepo{}, store)

	rr := postOrder(t, router, validBody, map[string]string{idempotency.HeaderKey: "k"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, sub.calls)
}

func TestSubmitOrder_FailuresAreNotReplayed(t *testing.T) {
	fail := true
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return createdOrder(req), nil
	}}
	store := &memoryStore{}
	router := newTestRouter(sub, &fakeRepo{}, store)
	headers := map[string]string{idempotency.HeaderKey: "retry-me"}

	require.Equal(t, http.StatusInternalServerError, postOrder(t, router, validBody, headers).Code)
	assert.Equal(t, []string{"retry-me"}, store.released)
	fail = false
	require.Equal(t, http.StatusOK, postOrder(t, router, validBody, headers).Code)
	assert.Equal(t, 2, sub.calls)
}

func TestSubmitOrder_ConcurrentSameKeySubmitsOnce(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		close(started)
		<-proceed
		return createdOrder(req), nil
	}}
	store := &memoryStore{}
	router := newTestRouter(sub, &fakeRepo{}, store)
	headers := map[string]string{idempotency.HeaderKey: "k1"}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- postOrder(t, router, validBody, headers) }()
	<-started

	second := postOrder(t, router, validBody, headers)
	assert.Equal(t, http.StatusConflict, second.Code)

	close(proceed)
	first := <-done
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, sub.calls)

	third := postOrder(t, router, validBody, headers)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, first.Body.String(), third.Body.String())
	assert.Equal(t, 1, sub.calls)
}

func TestSubmitOrder_KeyReusedWithDifferentBody(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		return createdOrder(req), nil
	}}
	router := newTestRouter(sub, &fakeRepo{}, &memoryStore{})
	headers := map[string]string{idempotency.HeaderKey: "k2"}

	require.Equal(t, http.StatusOK, postOrder(t, router, validBody, headers).Code)

	other := strings.Replace(validBody, `"quantity": 2`, `"quantity": 5`, 1)
	rr := postOrder(t, router, other, headers)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 1, sub.calls)
}

func TestSubmitOrder_PanicReleasesClaim(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		panic("boom")
	}}
	store := &memoryStore{}
	router := newTestRouter(sub, &fakeRepo{}, store)

	rr := postOrder(t, router, validBody, map[string]string{idempotency.HeaderKey: "k3"})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, []string{"k3"}, store.released)
}

func TestGetOrder_Success(t *testing.T) {
	repo := &fakeRepo{getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
		return &order.Order{
			ID:            orderID,
			Number:        7,
			PaymentMethod: order.PaymentCashOnDelivery,
			Currency:      "USD",
			Subtotal:      decimal.RequireFromString("15"),
			DeliveryFee:   decimal.RequireFromString("3"),
			Total:         decimal.RequireFromString("18"),
			Status:        order.StatusCreated,
			CreatedAt:     time.Unix(0, 0).UTC(),
			Items: []order.LineItem{
				{ProductID: "P1", SupplierID: "sup-1", Quantity: 2, UnitPrice: decimal.RequireFromString("7.5"), Status: order.StatusCreated},
			},
		}, nil
	}}
	router := newTestRouter(&fakeSubmitter{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+testOrderID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unit_price_usd":7.50`)

	var resp orderView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, testOrderID, resp.OrderID)
	assert.Equal(t, json.Number("18.00"), resp.TotalUSD)
	require.Len(t, resp.Items, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{}, &fakeRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+testOrderID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "order not found", resp["error"])
}

func TestGetOrder_MalformedIDIsNotFound(t *testing.T) {
	repo := &fakeRepo{getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
		t.Fatalf("repository called with %q", orderID)
		return nil, nil
	}}
	router := newTestRouter(&fakeSubmitter{}, repo, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetOrder_RepositoryError(t *testing.T) {
	repo := &fakeRepo{getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
		return nil, errors.New("db down")
	}}
	router := newTestRouter(&fakeSubmitter{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+testOrderID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{}, &fakeRepo{}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "storefront", resp["service"])
}

func TestSubmitOrder_PanicRecovered(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(ctx context.Context, req order.Request) (*order.Order, error) {
		panic("boom")
	}}
	router := newTestRouter(sub, &fakeRepo{}, nil)

	rr := postOrder(t, router, validBody, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
