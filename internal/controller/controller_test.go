package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/idempotency"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/payment/paymenttest"
	"storefront-checkout/internal/repository/repositorytest"
	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
}

func (f *fakeSessions) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	return &payment.Session{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

type testApp struct {
	router   *gin.Engine
	orders   *repositorytest.OrderStore
	sessions *fakeSessions
	auth     *service.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	orders := repositorytest.NewOrderStore()
	catalog := repositorytest.NewCatalog(
		&model.CatalogItem{ID: "logo_pack_1", Type: model.ItemTypeProduct, Title: "Logo Pack", Price: 29.5, Currency: "usd", Active: true},
	)
	sessions := &fakeSessions{}
	auth := service.NewAuthService("secret", "storefront")
	pricing := service.NewPricing("0")

	guard, err := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, "stripe-webhook")
	require.NoError(t, err)

	checkout := service.NewCheckoutService(service.CheckoutServiceParams{
		Catalog: catalog, Orders: orders, Sessions: sessions, Pricing: pricing, TestMode: true,
	})
	reconcile := service.NewReconciliationService(service.ReconciliationServiceParams{
		Repo: orders, Pricing: pricing,
	})

	router := NewRouter(RouterParams{
		Auth:     auth,
		Checkout: NewCheckoutController(checkout),
		Webhook:  NewWebhookController(payment.NewVerifier(paymenttest.Secret, 5*time.Minute), reconcile, guard, nil),
		Orders:   NewOrderController(service.NewOrderService(orders)),
	})
	return &testApp{router: router, orders: orders, sessions: sessions, auth: auth}
}

func (a *testApp) token(t *testing.T, user service.AuthUser) string {
	t.Helper()
	tok, err := a.auth.IssueToken(user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) postWebhook(payload []byte, sig string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/webhooks/stripe", payload, map[string]string{"Stripe-Signature": sig})
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestPrepareRejectsEmptyCart(t *testing.T) {
	app := newTestApp(t)

	body, _ := json.Marshal(dto.PrepareCheckoutRequest{Email: "buyer@example.com"})
	rec := app.do(http.MethodPost, "/checkout/prepare", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "no items provided", resp.Message)
	assert.Empty(t, app.sessions.requests)

	rec = app.do(http.MethodPost, "/checkout/prepare", []byte("{"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRequiresValidSignature(t *testing.T) {
	app := newTestApp(t)
	payload := paymenttest.Event("evt_1", "checkout.session.completed",
		paymenttest.CompletedSession("cs_forged", "buyer@example.com", 2950, nil))

	rec := app.postWebhook(payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.postWebhook(payload, paymenttest.SignatureHeader(payload, "whsec_other", time.Now()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, app.orders.Len())
}

func TestWebhookFailureIsRetriable(t *testing.T) {
	app := newTestApp(t)
	payload, sig := paymenttest.Signed(paymenttest.Event("evt_retry", "checkout.session.completed",
		paymenttest.CompletedSession("cs_retry", "buyer@example.com", 2950, nil)))

	app.orders.Err = repositorytest.ErrUnavailable
	rec := app.postWebhook(payload, sig)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	app.orders.Err = nil
	rec = app.postWebhook(payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, app.orders.Len())
}

func TestCheckoutToPaidOrderFlow(t *testing.T) {
	app := newTestApp(t)
	owner := service.AuthUser{ID: "user-1", Email: "buyer@example.com"}
	ownerToken := app.token(t, owner)

	body, _ := json.Marshal(dto.PrepareCheckoutRequest{
		Email: "buyer@example.com",
		Items: []dto.CartItem{{ID: "logo_pack_1", Type: model.ItemTypeProduct}, {ID: "ghost", Type: model.ItemTypeProduct}},
	})
	rec := app.do(http.MethodPost, "/checkout/prepare", body, bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prep dto.PrepareCheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prep))
	assert.True(t, prep.Success)
	assert.NotEmpty(t, prep.CheckoutURL)
	require.Equal(t, "cs_test_1", prep.SessionID)
	assert.Equal(t, "user-1", payment.UserIDFromMetadata(app.sessions.requests[0].Metadata))

	payload, sig := paymenttest.Signed(paymenttest.Event("evt_paid", "checkout.session.completed",
		paymenttest.CompletedSession(prep.SessionID, "buyer@example.com", 2950, app.sessions.requests[0].Metadata)))

	rec = app.postWebhook(payload, sig)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	// Redelivery del mismo evento
	rec = app.postWebhook(payload, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, app.orders.Len())

	rec = app.do(http.MethodGet, "/orders/session/"+prep.SessionID, nil, bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.StatusPaid, got.Order.Status)
	assert.Equal(t, 29.5, got.Order.Total)
	require.Len(t, got.Order.Items, 1)
	assert.Equal(t, "logo_pack_1", got.Order.Items[0].ItemID)

	stranger := app.token(t, service.AuthUser{ID: "user-2", Email: "other@example.com"})
	rec = app.do(http.MethodGet, "/orders/session/"+prep.SessionID, nil, bearer(stranger))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodGet, "/orders/session/cs_missing", nil, bearer(ownerToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodGet, "/orders/mine", nil, bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var mine dto.OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine.Orders, 1)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	payload, sig := paymenttest.Signed(paymenttest.Event("evt_a", "checkout.session.completed",
		paymenttest.CompletedSession("cs_a", "buyer@example.com", 1000, nil)))
	require.Equal(t, http.StatusOK, app.postWebhook(payload, sig).Code)

	admin := app.token(t, service.AuthUser{ID: "adm", Role: service.RoleAdmin})
	user := app.token(t, service.AuthUser{ID: "u"})

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/orders/all", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/orders/all", nil, bearer(user)).Code)

	rec := app.do(http.MethodGet, "/orders/all", nil, bearer(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	var all dto.OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all.Orders, 1)

	rec = app.do(http.MethodGet, "/orders/"+all.Orders[0].ID.Hex(), nil, bearer(admin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodGet, "/admin/orders/status/paid", nil, bearer(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	var paid dto.OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Len(t, paid.Orders, 1)

	rec = app.do(http.MethodGet, "/admin/orders/status/bogus", nil, bearer(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
