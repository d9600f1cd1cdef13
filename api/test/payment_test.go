package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	mock "github.com/stripe/stripe-mock/param"
)

// mockPaypal accepts orders for the expected total and remembers which
// shop order each PayPal order pays for.
type mockPaypal struct {
	mu            sync.Mutex
	expectedTotal decimal.Decimal
	refs          map[string]string
	next          int
}

func newMockPaypal() *mockPaypal {
	return &mockPaypal{refs: make(map[string]string)}
}

func (m *mockPaypal) expect(total decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedTotal = total
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tkn := map[string]any{"access_token": "paypal-token", "token_type": "Bearer", "expires_in": 3600}
		web.Respond(context.Background(), w, tkn, http.StatusOK)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if len(pu.Units) != 1 || pu.Units[0].Amount == nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if pu.Units[0].Amount.Value != m.expectedTotal.StringFixed(2) {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.next++
		id := fmt.Sprintf("PAYPAL-%d", m.next)
		m.refs[id] = pu.Units[0].ReferenceID

		web.Respond(context.Background(), w, map[string]any{"id": id, "status": "CREATED"}, http.StatusCreated)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		ref, ok := m.refs[id]
		m.mu.Unlock()
		if !ok {
			web.Respond(context.Background(), w, nil, http.StatusNotFound)
			return
		}

		ord := map[string]any{
			"id":             id,
			"status":         "COMPLETED",
			"purchase_units": []map[string]any{{"reference_id": ref}},
			"payer":          map[string]any{"email_address": "buyer@example.com"},
		}
		web.Respond(context.Background(), w, ord, http.StatusCreated)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders", checkout).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods(http.MethodPost)
	return r
}

// mockStripe opens payment intents for the expected amount in cents.
type mockStripe struct {
	mu            sync.Mutex
	expectedCents int64
	intents       map[string]string
	next          int
}

func newMockStripe() *mockStripe {
	return &mockStripe{intents: make(map[string]string)}
}

func (m *mockStripe) expect(total decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedCents = total.Shift(2).IntPart()
}

// orderOf returns the shop order an intent was opened for.
func (m *mockStripe) orderOf(intentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intents[intentID]
}

func (m *mockStripe) handle() http.Handler {
	intent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		s, _ := params["amount"].(string)
		amount, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		md, _ := params["metadata"].(map[string]any)
		orderID, _ := md["orderId"].(string)

		m.mu.Lock()
		defer m.mu.Unlock()

		if amount != m.expectedCents || orderID == "" {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.next++
		id := fmt.Sprintf("pi_e2e_%d", m.next)
		m.intents[id] = orderID

		pi := map[string]any{
			"id":            id,
			"object":        "payment_intent",
			"amount":        amount,
			"currency":      params["currency"],
			"client_secret": id + "_secret",
			"status":        "requires_payment_method",
			"metadata":      md,
		}
		web.Respond(context.Background(), w, pi, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/payment_intents", intent).Methods(http.MethodPost)
	return r
}
