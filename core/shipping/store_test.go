package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleCols = []string{"rule_id", "zone", "min_weight", "max_weight", "price", "carrier", "created_at", "updated_at"}

func TestQueryMatching(t *testing.T) {
	db, mock := dbtest.New(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM shipping_rules WHERE zone = \$1 AND min_weight <= \$2 AND max_weight >= \$2 ORDER BY price`).
		WithArgs("international", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(ruleCols).
			AddRow("r1", "international", []byte("2.001"), []byte("10.000"), []byte("17.00"), "Latvijas Pasts", now, now).
			AddRow("r2", "international", []byte("2.001"), []byte("10.000"), []byte("21.00"), "DPD", now, now))

	rules, err := QueryMatching(context.Background(), db, International, dec("3"))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)
	assert.True(t, rules[0].Price.Equal(dec("17")))
	assert.True(t, rules[1].MinWeight.Equal(dec("2.001")))
}

func TestFetchNotFound(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectQuery(`SELECT .* FROM shipping_rules WHERE rule_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(ruleCols))

	_, err := Fetch(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, database.ErrDBNotFound))
}

func TestCreate(t *testing.T) {
	db, mock := dbtest.New(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO shipping_rules`).
		WithArgs("r1", "omniva", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "Omniva", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := Create(context.Background(), db, Rule{
		ID: "r1", Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("3.5"),
		Carrier: "Omniva", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestUpdateMissing(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectExec(`UPDATE shipping_rules SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Update(context.Background(), db, Rule{ID: "r1", Zone: Omniva})
	assert.True(t, errors.Is(err, database.ErrDBNotFound))
}

func TestDelete(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectExec(`DELETE FROM shipping_rules WHERE rule_id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, Delete(context.Background(), db, "r1"))
}
