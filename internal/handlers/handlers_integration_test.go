package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/notify"
	"storefront/pkg/payment"
)

// recordingNotifier keeps every notification it is asked to deliver.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail bool
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

type testEnv struct {
	app      *fiber.App
	sandbox  *payment.SandboxProcessor
	notifier *recordingNotifier
}

// setupApp wires the full handler stack over an in-memory database and the
// sandbox processor.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, "sqlite"))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := zap.NewNop()
	sandbox := payment.NewSandboxProcessor()
	notifier := &recordingNotifier{}

	tokens := services.NewTokenIssuer("test_checkout_secret", time.Hour)
	catalog := services.NewCatalogService(repositories.NewStaticCatalogRepository(models.DefaultCatalog()))
	carts := services.NewCartService(repositories.NewMemoryCartRepository(), catalog)
	notifications := services.NewNotificationService(notifier,
		services.Contact{Email: "owner@example.com", Phone: "+15550000000"}, time.Second)
	orders := services.NewOrderService(repositories.NewGORMOrderRepository(db), notifications, logger)
	leads := services.NewLeadService(repositories.NewGORMLeadRepository(db), notifications, logger)
	pricing := services.NewPricingService(sandbox, services.PricingConfig{
		Floor:    decimal.RequireFromString("0.50"),
		Currency: "usd",
		Timeout:  time.Second,
	}, logger)
	checkout := services.NewCheckoutService(catalog, pricing, carts, orders, tokens, sandbox,
		repositories.NewGORMCheckoutAttemptRepository(db), repositories.NewMemoryIntentKeyStore(),
		services.CheckoutConfig{IdempotencyWindow: time.Minute, ProcessorTimeout: time.Second}, logger)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewCatalogHandler(catalog, logger).RegisterRoutes(apiV1)
	handlers.NewCartHandler(carts, logger).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orders, logger).RegisterRoutes(apiV1)
	handlers.NewWebhookHandler(checkout, sandbox, logger).RegisterRoutes(apiV1)
	checkoutHandler := handlers.NewCheckoutHandler(checkout, tokens, logger)
	checkoutHandler.RegisterRoutes(apiV1)
	checkoutHandler.RegisterLegacyRoutes(app)
	leadHandler := handlers.NewLeadHandler(leads, logger)
	leadHandler.RegisterRoutes(apiV1)
	leadHandler.RegisterLegacyRoutes(app)

	return &testEnv{app: app, sandbox: sandbox, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

type sessionBody struct {
	AttemptID    string `json:"attempt_id"`
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	State        string `json:"state"`
	Token        string `json:"checkout_token"`
	Reused       bool   `json:"reused"`
}

type outcomeBody struct {
	AttemptID     string        `json:"attempt_id"`
	State         string        `json:"state"`
	Paid          bool          `json:"paid"`
	Message       string        `json:"message"`
	FailureReason string        `json:"failure_reason"`
	Order         *models.Order `json:"order"`
	Warning       string        `json:"warning"`
}

func (e *testEnv) begin(t *testing.T, session string, items ...map[string]interface{}) sessionBody {
	t.Helper()
	status, raw := e.do(t, http.MethodPost, "/api/v1/checkout/intents",
		map[string]interface{}{"session_id": session, "items": items}, nil)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var body sessionBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func tokenHeader(token string) map[string]string {
	return map[string]string{middleware.CheckoutTokenHeader: token}
}

var buyer = map[string]interface{}{"name": "Ada Lovelace", "email": "ada@example.com", "phone": "+15551234567"}

func confirmBody(paymentMethod string) map[string]interface{} {
	body := map[string]interface{}{"payment_method": paymentMethod}
	for k, v := range buyer {
		body[k] = v
	}
	return body
}

func TestCatalogRoutes(t *testing.T) {
	env := setupApp(t)

	status, raw := env.do(t, http.MethodGet, "/api/v1/services", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	var items []models.CatalogItem
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, len(models.DefaultCatalog()))

	status, _ = env.do(t, http.MethodGet, "/api/v1/services/consulting", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/services/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCartRoutes(t *testing.T) {
	env := setupApp(t)

	status, raw := env.do(t, http.MethodPost, "/api/v1/carts/sess-1/items",
		map[string]interface{}{"id": "consulting", "option": "4"}, nil)
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = env.do(t, http.MethodGet, "/api/v1/carts/sess-1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var cart struct {
		Items []models.CartLine `json:"items"`
		Total decimal.Decimal   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(raw, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "General Consulting (4 hrs)", cart.Items[0].Name)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(749)), cart.Total.String())

	status, _ = env.do(t, http.MethodPost, "/api/v1/carts/sess-1/items", map[string]interface{}{"option": "4"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/carts/sess-1/items", map[string]interface{}{"id": "yacht"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/carts/sess-1/items/consulting", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/carts/sess-1", nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestCheckoutConfirmSucceeds(t *testing.T) {
	env := setupApp(t)

	session := env.begin(t, "sess-a", map[string]interface{}{"id": "consulting", "option": "1"})
	assert.Equal(t, int64(19900), session.Amount)
	assert.Equal(t, "intent_pending", session.State)
	assert.NotEmpty(t, session.ClientSecret)
	require.NotEmpty(t, session.Token)

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))

	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.True(t, outcome.Paid)
	assert.Equal(t, "succeeded", outcome.State)
	assert.Equal(t, services.MsgPaymentSucceeded, outcome.Message)
	require.NotNil(t, outcome.Order)
	assert.Equal(t, session.IntentID, outcome.Order.IntentID)
	assert.Len(t, env.notifier.Sent(), 2, "business and buyer")

	status, raw = env.do(t, http.MethodGet, "/api/v1/orders/"+outcome.Order.ID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var order models.Order
	require.NoError(t, json.Unmarshal(raw, &order))
	assert.Equal(t, "ada@example.com", order.Buyer.Email)

	// Confirming again returns the same order.
	status, raw = env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))
	var again outcomeBody
	require.NoError(t, json.Unmarshal(raw, &again))
	assert.Equal(t, outcome.Order.ID, again.Order.ID)
}

func TestCheckoutFloorsFreeItem(t *testing.T) {
	env := setupApp(t)

	session := env.begin(t, "sess-b", map[string]interface{}{"id": "tech"})
	assert.Equal(t, int64(50), session.Amount)
}

func TestCheckoutDeclineThenRetry(t *testing.T) {
	env := setupApp(t)
	session := env.begin(t, "sess-c", map[string]interface{}{"id": "consulting"})

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardDeclined), tokenHeader(session.Token))
	assert.Equal(t, http.StatusPaymentRequired, status)
	var declined map[string]string
	require.NoError(t, json.Unmarshal(raw, &declined))
	assert.Equal(t, "Your card was declined.", declined["message"])
	assert.Empty(t, env.notifier.Sent())

	status, raw = env.do(t, http.MethodGet, "/api/v1/checkout/status", nil, tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status)
	var failed outcomeBody
	require.NoError(t, json.Unmarshal(raw, &failed))
	assert.Equal(t, "failed", failed.State)
	assert.Equal(t, "Your card was declined.", failed.FailureReason)

	status, raw = env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))
	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.True(t, outcome.Paid)
	assert.Empty(t, outcome.FailureReason)
}

func TestCheckoutNotificationFailureStillPaid(t *testing.T) {
	env := setupApp(t)
	env.notifier.fail = true
	session := env.begin(t, "sess-d", map[string]interface{}{"id": "consulting"})

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))

	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.True(t, outcome.Paid)
	assert.Equal(t, services.MsgPaymentSucceededNoConfirm, outcome.Message)
	assert.NotEmpty(t, outcome.Warning)
	require.NotNil(t, outcome.Order)
}

func TestCheckoutRejectsBadRequests(t *testing.T) {
	env := setupApp(t)

	status, _ := env.do(t, http.MethodPost, "/api/v1/checkout/intents",
		map[string]interface{}{"session_id": "s", "items": []interface{}{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/checkout/intents",
		map[string]interface{}{"session_id": "s", "items": []interface{}{map[string]interface{}{"id": "yacht"}}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/checkout/confirm", confirmBody(payment.SandboxCardVisa), nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, status)

	session := env.begin(t, "s", map[string]interface{}{"id": "consulting"})
	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		map[string]interface{}{"name": "Ada", "payment_method": payment.SandboxCardVisa}, tokenHeader(session.Token))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "Validation failed")
}

func TestCheckoutReusesOpenAttempt(t *testing.T) {
	env := setupApp(t)
	first := env.begin(t, "sess-e", map[string]interface{}{"id": "consulting"})

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/intents",
		map[string]interface{}{"session_id": "sess-e", "items": []interface{}{map[string]interface{}{"id": "consulting"}}}, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var second sessionBody
	require.NoError(t, json.Unmarshal(raw, &second))
	assert.True(t, second.Reused)
	assert.Equal(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, first.IntentID, second.IntentID)
}

func TestCheckoutCancel(t *testing.T) {
	env := setupApp(t)
	session := env.begin(t, "sess-f", map[string]interface{}{"id": "consulting"})

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/cancel", nil, tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))
	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.Equal(t, "canceled", outcome.State)

	status, _ = env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardVisa), tokenHeader(session.Token))
	assert.Equal(t, http.StatusConflict, status)
}

func TestCheckoutComplete(t *testing.T) {
	env := setupApp(t)
	session := env.begin(t, "sess-g", map[string]interface{}{"id": "artist-management", "option": "6"})
	assert.Equal(t, int64(189900), session.Amount)

	// The client confirms with the processor directly.
	_, err := env.sandbox.Settle(session.IntentID, payment.StatusSucceeded, "")
	require.NoError(t, err)

	status, raw := env.do(t, http.MethodPost, "/api/v1/checkout/complete", buyer, tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status, string(raw))
	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.True(t, outcome.Paid)
	require.NotNil(t, outcome.Order)
}

func TestWebhookFinalizesLateSuccess(t *testing.T) {
	env := setupApp(t)
	session := env.begin(t, "sess-h", map[string]interface{}{"id": "consulting"})

	status, _ := env.do(t, http.MethodPost, "/api/v1/checkout/confirm",
		confirmBody(payment.SandboxCardProcessing), tokenHeader(session.Token))
	assert.Equal(t, http.StatusPaymentRequired, status)

	_, err := env.sandbox.Settle(session.IntentID, payment.StatusSucceeded, "")
	require.NoError(t, err)

	event := map[string]string{"id": "evt_1", "type": payment.EventIntentSucceeded, "intent_id": session.IntentID}
	status, raw := env.do(t, http.MethodPost, "/api/v1/webhooks/payments", event, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"received":true}`, string(raw))

	// Redelivery is harmless.
	status, _ = env.do(t, http.MethodPost, "/api/v1/webhooks/payments", event, nil)
	require.Equal(t, http.StatusOK, status)

	status, raw = env.do(t, http.MethodGet, "/api/v1/checkout/status", nil, tokenHeader(session.Token))
	require.Equal(t, http.StatusOK, status)
	var outcome outcomeBody
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.Equal(t, "succeeded", outcome.State)
	assert.True(t, outcome.Paid)
	require.NotNil(t, outcome.Order)
	assert.Len(t, env.notifier.Sent(), 2)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	env := setupApp(t)

	status, _ := env.do(t, http.MethodPost, "/api/v1/webhooks/payments", map[string]string{"type": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLegacyCreatePaymentIntent(t *testing.T) {
	env := setupApp(t)

	status, raw := env.do(t, http.MethodPost, "/create-payment-intent",
		map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"id": "consulting", "option": "8", "price": 1},
		}}, map[string]string{"X-Session-ID": "legacy"})
	require.Equal(t, http.StatusOK, status, string(raw))

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotEmpty(t, body["clientSecret"])
	assert.NotEmpty(t, body["attemptId"])
	assert.NotEmpty(t, body["checkoutToken"])

	status, raw = env.do(t, http.MethodPost, "/create-payment-intent", map[string]interface{}{"items": []interface{}{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "error")
}

func TestBookCall(t *testing.T) {
	env := setupApp(t)

	status, raw := env.do(t, http.MethodPost, "/book-call", map[string]interface{}{
		"name": "Grace Hopper", "email": "grace@example.com", "phone": "+15557654321", "service_type": "consulting",
	}, nil)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var body struct {
		Message string      `json:"message"`
		Account models.Lead `json:"account"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Booking submitted successfully, emails sent!", body.Message)
	assert.NotEmpty(t, body.Account.ID)
	assert.NotEmpty(t, env.notifier.Sent())

	status, raw = env.do(t, http.MethodPost, "/api/v1/leads", map[string]interface{}{"name": "No Email"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "Validation failed")
}
