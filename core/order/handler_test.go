package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/database/dbtest"
	"github.com/irsalhamdi/honey-shop/email"
	"github.com/irsalhamdi/honey-shop/events"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

const (
	orderID   = "5d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b1a"
	productID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	userID    = "3c1f6e2a-8d4b-4f5e-9a7c-2b1d0e3f4a5b"
)

var orderCols = []string{"order_id", "user_facing_id", "user_id", "user_name", "shipping_address",
	"payment_method", "payment_result", "delivery_method", "items_price", "shipping_price", "tax_price",
	"total_price", "is_paid", "paid_at", "is_shipped", "shipped_at", "is_delivered", "delivered_at", "created_at"}

var itemCols = []string{"order_id", "product_id", "name", "slug", "image", "price", "qty", "weight"}

func orderRow(paid bool) *sqlmock.Rows {
	var paidAt any
	if paid {
		paidAt = time.Now().UTC()
	}
	addr := []byte(`{"fullName":"Anna Berzina","streetAddress":"Brivibas iela 1","city":"Riga","postalCode":"LV-1010","country":"LV"}`)

	return sqlmock.NewRows(orderCols).AddRow(orderID, "ORD-20260308-0042", userID, "Anna Berzina", addr,
		"Stripe", nil, "international", []byte("20.00"), []byte("3.00"), []byte("4.20"), []byte("27.20"),
		paid, paidAt, false, nil, false, nil, time.Now().UTC())
}

func itemRows() *sqlmock.Rows {
	return sqlmock.NewRows(itemCols).
		AddRow(orderID, productID, "Linden honey", "linden-honey", "", []byte("10.00"), 2, []byte("1.000"))
}

type receiptRecorder struct {
	mu   sync.Mutex
	sent map[string]email.Receipt
}

func (r *receiptRecorder) SendReceipt(ctx context.Context, to string, rc email.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[to] = rc
	return nil
}

type eventRecorder struct {
	mu    sync.Mutex
	names []string
}

func (e *eventRecorder) Publish(ctx context.Context, ev events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, ev.EventName)
	return nil
}

func newNotifier(db *sqlx.DB) (Notifier, *receiptRecorder, *eventRecorder) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	rec := &receiptRecorder{sent: map[string]email.Receipt{}}
	evs := &eventRecorder{}
	return Notifier{DB: db, Mailer: rec, Events: evs, BG: background.New(log)}, rec, evs
}

func adminContext() context.Context {
	return claims.Set(context.Background(), claims.Claims{UserID: "a1", Role: claims.RoleAdmin})
}

func withID(r *http.Request) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": orderID})
}

func TestHandleMarkPaid(t *testing.T) {
	db, mock := dbtest.New(t)
	n, rec, evs := newNotifier(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET .* WHERE order_id = \$1 AND NOT is_paid`).
		WithArgs(orderID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = \$1`).
		WillReturnRows(itemRows())
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(true))
	mock.ExpectQuery(`SELECT .* FROM users WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "email"}).AddRow(userID, "Anna Berzina", "anna@example.com"))
	mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = \$1`).
		WillReturnRows(itemRows())

	w := httptest.NewRecorder()
	r := withID(httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/pay", nil))

	require.NoError(t, HandleMarkPaid(db, n)(adminContext(), w, r))
	require.NoError(t, n.BG.Shutdown(context.Background()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isPaid":true`)
	assert.Equal(t, "ORD-20260308-0042", rec.sent["anna@example.com"].UserFacingID)
	assert.Equal(t, []string{events.OrderPaid}, evs.names)
}

func TestHandleMarkPaidTwice(t *testing.T) {
	db, mock := dbtest.New(t)
	n, rec, evs := newNotifier(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET .* WHERE order_id = \$1 AND NOT is_paid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(true))
	mock.ExpectRollback()

	r := withID(httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/pay", nil))
	err := HandleMarkPaid(db, n)(adminContext(), httptest.NewRecorder(), r)
	require.NoError(t, n.BG.Shutdown(context.Background()))

	resp, status, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Order is already paid", resp.(*weberr.ErrorResponse).Message)
	assert.Empty(t, rec.sent)
	assert.Empty(t, evs.names)
}

func TestHandleDeliverUnpaid(t *testing.T) {
	db, mock := dbtest.New(t)
	n, _, evs := newNotifier(db)

	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(false))

	r := withID(httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/deliver", nil))
	err := HandleDeliver(db, n)(adminContext(), httptest.NewRecorder(), r)
	require.NoError(t, n.BG.Shutdown(context.Background()))

	resp, status, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Order is not paid", resp.(*weberr.ErrorResponse).Message)
	assert.Empty(t, evs.names)
}

func TestHandleShipWithoutPayment(t *testing.T) {
	db, mock := dbtest.New(t)
	n, _, evs := newNotifier(db)

	mock.ExpectExec(`UPDATE orders SET is_shipped = TRUE, shipped_at = \$2 WHERE order_id = \$1`).
		WithArgs(orderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(false))

	w := httptest.NewRecorder()
	r := withID(httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/ship", nil))
	require.NoError(t, HandleShip(db, n)(adminContext(), w, r))
	require.NoError(t, n.BG.Shutdown(context.Background()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{events.OrderShipped}, evs.names)
}

func TestHandleShowForeignOrder(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(false))

	ctx := claims.Set(context.Background(), claims.Claims{UserID: "someone-else", Role: claims.RoleUser})
	r := withID(httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil))

	err := HandleShow(db)(ctx, httptest.NewRecorder(), r)
	_, status, _ := weberr.Response(err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHandleCreateEmptyCart(t *testing.T) {
	db, mock := dbtest.New(t)
	n, _, _ := newNotifier(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "email", "payment_method"}).
			AddRow(userID, "Anna Berzina", "anna@example.com", "Stripe"))
	mock.ExpectQuery(`SELECT .* FROM carts WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"cart_id"}))

	ctx := claims.Set(context.Background(), claims.Claims{UserID: userID, Role: claims.RoleUser})
	r := httptest.NewRequest(http.MethodPost, "/orders", nil)

	err := HandleCreate(db, n)(ctx, httptest.NewRecorder(), r)
	require.NoError(t, n.BG.Shutdown(context.Background()))

	_, status, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

type pdfRecorder struct {
	html string
}

func (p *pdfRecorder) Render(ctx context.Context, html string) ([]byte, error) {
	p.html = html
	return []byte("%PDF-1.4"), nil
}

func TestHandleReceipt(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(true))
	mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = \$1`).
		WillReturnRows(itemRows())

	pdf := &pdfRecorder{}
	ctx := claims.Set(context.Background(), claims.Claims{UserID: userID, Role: claims.RoleUser})
	w := httptest.NewRecorder()
	r := withID(httptest.NewRequest(http.MethodGet, "/orders/"+orderID+"/receipt", nil))

	require.NoError(t, HandleReceipt(db, pdf)(ctx, w, r))
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ORD-20260308-0042.pdf")
	assert.Contains(t, pdf.html, "Linden honey")
}

func TestHandleReceiptUnpaid(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(false))

	r := withID(httptest.NewRequest(http.MethodGet, "/orders/"+orderID+"/receipt", nil))
	err := HandleReceipt(db, &pdfRecorder{})(adminContext(), httptest.NewRecorder(), r)

	_, status, _ := weberr.Response(err)
	assert.Equal(t, http.StatusConflict, status)
}

func signedStripeEvent(t *testing.T, secret, typ string, obj map[string]any) *http.Request {
	t.Helper()

	b, err := json.Marshal(map[string]any{
		"id":          "evt_test",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        typ,
		"data":        map[string]any{"object": obj},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	r := httptest.NewRequest(http.MethodPost, "/orders/stripe/webhook", strings.NewReader(string(b)))
	r.Header.Set("Stripe-Signature", signed.Header)
	return r
}

func TestStripeWebhookAlreadyPaid(t *testing.T) {
	db, mock := dbtest.New(t)
	n, _, evs := newNotifier(db)
	cfg := config.Stripe{WebhookSecret: "whsec_test"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET .* WHERE order_id = \$1 AND NOT is_paid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM orders o JOIN users u .* WHERE o.order_id = \$1`).
		WillReturnRows(orderRow(true))
	mock.ExpectRollback()

	r := signedStripeEvent(t, cfg.WebhookSecret, "payment_intent.succeeded", map[string]any{
		"id":       "pi_123",
		"status":   "succeeded",
		"metadata": map[string]string{"orderId": orderID},
	})
	w := httptest.NewRecorder()

	require.NoError(t, HandleStripeWebhook(db, n, cfg)(context.Background(), w, r))
	require.NoError(t, n.BG.Shutdown(context.Background()))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, evs.names)
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	db, _ := dbtest.New(t)
	n, _, _ := newNotifier(db)
	cfg := config.Stripe{WebhookSecret: "whsec_test"}

	r := signedStripeEvent(t, cfg.WebhookSecret, "charge.refunded", map[string]any{"id": "ch_1"})
	w := httptest.NewRecorder()

	require.NoError(t, HandleStripeWebhook(db, n, cfg)(context.Background(), w, r))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStripeWebhookBadSignature(t *testing.T) {
	db, _ := dbtest.New(t)
	n, _, _ := newNotifier(db)

	r := signedStripeEvent(t, "whsec_other", "payment_intent.succeeded", map[string]any{"id": "pi_1"})
	err := HandleStripeWebhook(db, n, config.Stripe{WebhookSecret: "whsec_test"})(context.Background(), httptest.NewRecorder(), r)

	_, status, _ := weberr.Response(err)
	assert.Equal(t, http.StatusBadRequest, status)
}
