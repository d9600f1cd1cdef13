package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/database/dbtest"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCommits(t *testing.T) {
	db, mock := dbtest.New(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET stock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		_, err := database.ExecContext(context.Background(), tx, `UPDATE products SET stock = stock - 1`)
		return err
	})
	require.NoError(t, err)
}

func TestTransactionRollsBack(t *testing.T) {
	db, mock := dbtest.New(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestErrorMapping(t *testing.T) {
	db, mock := dbtest.New(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	_, err := database.ExecContext(ctx, db, `INSERT INTO users (email) VALUES ($1)`, "a@b.c")
	assert.ErrorIs(t, err, database.ErrDBDuplicatedEntry)

	mock.ExpectExec(`DELETE FROM products`).WillReturnError(&pq.Error{Code: "23503"})
	_, err = database.ExecContext(ctx, db, `DELETE FROM products WHERE product_id = $1`, "p1")
	assert.ErrorIs(t, err, database.ErrDBReferenced)

	mock.ExpectQuery(`SELECT name FROM users`).WillReturnRows(sqlmock.NewRows([]string{"name"}))
	var name string
	err = database.GetContext(ctx, db, &name, `SELECT name FROM users WHERE user_id = $1`, "u1")
	assert.ErrorIs(t, err, database.ErrDBNotFound)
}
