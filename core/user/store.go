package user

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

const userColumns = `user_id, name, email, password_hash, role, active, address, payment_method,
	created_at, updated_at, version`

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	q := `
	INSERT INTO users
		(user_id, name, email, password_hash, role, active, address, payment_method, created_at, updated_at, version)
	VALUES
		(:user_id, :name, :email, :password_hash, :role, :active, :address, :payment_method, :created_at, :updated_at, :version)`

	if err := database.NamedExecContext(ctx, db, q, u); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Update writes every mutable column of u.
func Update(ctx context.Context, db sqlx.ExtContext, u User) error {
	q := `
	UPDATE users SET
		name = :name,
		email = :email,
		password_hash = :password_hash,
		role = :role,
		active = :active,
		address = :address,
		payment_method = :payment_method,
		updated_at = :updated_at,
		version = version + 1
	WHERE user_id = :user_id`

	n, err := database.NamedExecRows(ctx, db, q, u)
	if err != nil {
		return fmt.Errorf("updating user[%s]: %w", u.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating user[%s]: %w", u.ID, database.ErrDBNotFound)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	n, err := database.ExecContext(ctx, db, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting user[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	var u User
	if err := database.GetContext(ctx, db, &u, q, id); err != nil {
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var u User
	if err := database.GetContext(ctx, db, &u, q, email); err != nil {
		return User{}, fmt.Errorf("selecting user with email[%s]: %w", email, err)
	}
	return u, nil
}

// Query pages through users whose name contains query, newest first.
func Query(ctx context.Context, db sqlx.ExtContext, query string, page, limit int) ([]User, int, error) {
	var total int
	cq := `SELECT COUNT(*) FROM users WHERE name ILIKE '%' || $1 || '%'`
	if err := database.GetContext(ctx, db, &total, cq, query); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	q := `SELECT ` + userColumns + ` FROM users
	WHERE name ILIKE '%' || $1 || '%'
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	users := []User{}
	if err := database.SelectContext(ctx, db, &users, q, query, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("selecting users: %w", err)
	}
	return users, total, nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	var n int
	if err := database.GetContext(ctx, db, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
