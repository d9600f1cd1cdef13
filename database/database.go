package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/irsalhamdi/honey-shop/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var (
	ErrDBNotFound        = errors.New("not found")
	ErrDBDuplicatedEntry = errors.New("duplicated entry")
	ErrDBReferenced      = errors.New("referenced by other rows")
)

func Open(cfg config.DB) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Open("postgres", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var tmp bool
	return db.QueryRowContext(ctx, `SELECT true`).Scan(&tmp)
}

// Transaction runs fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func Transaction(db *sqlx.DB, fn func(tx sqlx.ExtContext) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed (%v) after: %w", rerr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func NamedExecContext(ctx context.Context, db sqlx.ExtContext, query string, data any) error {
	_, err := NamedExecRows(ctx, db, query, data)
	return err
}

// NamedExecRows executes a named query and reports the number of affected rows.
func NamedExecRows(ctx context.Context, db sqlx.ExtContext, query string, data any) (int64, error) {
	res, err := sqlx.NamedExecContext(ctx, db, query, data)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func ExecContext(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func GetContext(ctx context.Context, db sqlx.ExtContext, dest any, query string, args ...any) error {
	if err := sqlx.GetContext(ctx, db, dest, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

func SelectContext(ctx context.Context, db sqlx.ExtContext, dest any, query string, args ...any) error {
	if err := sqlx.SelectContext(ctx, db, dest, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDBNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrDBDuplicatedEntry, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", ErrDBReferenced, pqErr.Constraint)
		}
	}

	return err
}
