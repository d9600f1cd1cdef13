package review

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productID = "5d0f1c7e-7a51-4f0a-9e64-3a1c2b9f8e77"

func TestHandleSave(t *testing.T) {
	db, mock := dbtest.New(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM products WHERE product_id = \$1`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name"}).AddRow(productID, "Linden honey"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS .* FROM order_items i JOIN orders o`).
		WithArgs(productID, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO reviews .* ON CONFLICT \(user_id, product_id\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "u1", productID, 4, "Lovely", "Great taste", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"review_id", "created_at"}).AddRow("r-existing", now))
	mock.ExpectExec(`UPDATE products SET rating`).
		WithArgs(productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := `{"productId":"` + productID + `","rating":4,"title":"Lovely","description":"Great taste"}`
	r := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
	ctx := claims.Set(context.Background(), claims.Claims{UserID: "u1", Role: claims.RoleUser})
	w := httptest.NewRecorder()

	require.NoError(t, HandleSave(db)(ctx, w, r))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"r-existing"`)
	assert.Contains(t, w.Body.String(), `"isVerifiedPurchase":true`)
}

func TestHandleSaveRollsBackOnRatingFailure(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectQuery(`SELECT .* FROM products WHERE product_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(productID))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO reviews`).
		WillReturnRows(sqlmock.NewRows([]string{"review_id", "created_at"}).AddRow("r1", time.Now()))
	mock.ExpectExec(`UPDATE products SET rating`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	body := `{"productId":"` + productID + `","rating":5,"title":"Lovely","description":"Great taste"}`
	r := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
	ctx := claims.Set(context.Background(), claims.Claims{UserID: "u1"})

	err := HandleSave(db)(ctx, httptest.NewRecorder(), r)
	assert.ErrorIs(t, err, assert.AnError)
}
