// Package dbtest builds sqlx handles backed by go-sqlmock for store tests.
package dbtest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New returns a sqlx handle that binds like postgres and the mock driving it.
// Expectations are verified when the test ends.
func New(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})

	return sqlx.NewDb(mockDB, "postgres"), mock
}
