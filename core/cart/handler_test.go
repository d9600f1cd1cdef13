package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productID = "2f1e0d9c-8b7a-4c6d-9e5f-4a3b2c1d0e9f"

var cartCols = []string{"cart_id", "user_id", "session_cart_id", "items", "delivery_method",
	"items_price", "shipping_price", "tax_price", "total_price", "created_at", "updated_at"}

func sessionContext(t *testing.T) (context.Context, *scs.SessionManager) {
	t.Helper()

	session := scs.New()
	ctx, err := session.Load(context.Background(), "")
	require.NoError(t, err)
	return ctx, session
}

func TestHandleAddItemAnonymous(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx, session := sessionContext(t)

	mock.ExpectQuery(`SELECT .* FROM products WHERE product_id = \$1`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "slug", "images", "price", "stock", "weight"}).
			AddRow(productID, "Linden honey", "linden-honey", []byte("{https://cdn.example.com/l.jpg}"), []byte("10.00"), 5, []byte("1.000")))
	mock.ExpectQuery(`SELECT .* FROM carts WHERE session_cart_id = \$1`).
		WillReturnRows(sqlmock.NewRows(cartCols))
	mock.ExpectExec(`INSERT INTO carts .* ON CONFLICT \(cart_id\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"productId":"` + productID + `","qty":2}`
	r := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	w := httptest.NewRecorder()

	require.NoError(t, HandleAddItem(db, session, testPricer())(ctx, w, r))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Linden honey added to cart"`)
	assert.Contains(t, w.Body.String(), `"totalPrice":"27.2"`)
	assert.NotEmpty(t, SessionCartID(ctx, session))
}

func TestHandleAddItemOverStock(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx, session := sessionContext(t)
	ctx = claims.Set(ctx, claims.Claims{UserID: "u1", Role: claims.RoleUser})
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM products WHERE product_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "stock", "weight"}).
			AddRow(productID, "Linden honey", []byte("10.00"), 1, []byte("1.000")))
	mock.ExpectQuery(`SELECT .* FROM carts WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow("c1", "u1", "k1",
			[]byte(`[{"productId":"`+productID+`","name":"Linden honey","price":"10","qty":1,"weight":"1"}]`),
			"international", []byte("10"), []byte("3"), []byte("2.1"), []byte("15.1"), now, now))

	body := `{"productId":"` + productID + `"}`
	r := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))

	err := HandleAddItem(db, session, testPricer())(ctx, httptest.NewRecorder(), r)

	resp, status, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Not enough stock", resp.(*weberr.ErrorResponse).Message)
}

func TestHandleRemoveItemMissingCart(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx, session := sessionContext(t)

	mock.ExpectQuery(`SELECT .* FROM carts WHERE session_cart_id = \$1`).
		WillReturnRows(sqlmock.NewRows(cartCols))

	r := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/cart/items/"+productID, nil),
		map[string]string{"product_id": productID})

	err := HandleRemoveItem(db, session, testPricer())(ctx, httptest.NewRecorder(), r)
	_, status, _ := weberr.Response(err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAttachReplacesUserCart(t *testing.T) {
	db, mock := dbtest.New(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM carts WHERE session_cart_id = \$1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow("c1", nil, "s1",
			[]byte(`[{"productId":"p1","name":"Honey","price":"10","qty":1,"weight":"1"}]`),
			"international", []byte("10"), []byte("3"), []byte("2.1"), []byte("15.1"), now, now))
	mock.ExpectExec(`DELETE FROM carts WHERE user_id = \$1 AND cart_id <> \$2`).
		WithArgs("u1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE carts SET user_id = \$1, updated_at = \$2 WHERE cart_id = \$3`).
		WithArgs("u1", sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Attach(context.Background(), db, "s1", "u1"))
}

func TestAttachKeepsUserCartForEmptySession(t *testing.T) {
	db, mock := dbtest.New(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM carts WHERE session_cart_id = \$1`).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow("c1", nil, "s1", []byte(`[]`),
			"international", []byte("0"), []byte("0"), []byte("0"), []byte("0"), now, now))
	mock.ExpectCommit()

	require.NoError(t, Attach(context.Background(), db, "s1", "u1"))
}
