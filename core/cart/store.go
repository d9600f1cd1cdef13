package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

const cartColumns = `cart_id, user_id, session_cart_id, items, delivery_method,
	items_price, shipping_price, tax_price, total_price, created_at, updated_at`

// Fetch returns the cart of the identity. A signed in user is looked up by
// user id only.
func Fetch(ctx context.Context, db sqlx.ExtContext, id Identity) (Cart, error) {
	if id.UserID != "" {
		return fetchBy(ctx, db, "user_id", id.UserID)
	}
	if id.SessionCartID == "" {
		return Cart{}, fmt.Errorf("selecting cart: %w", database.ErrDBNotFound)
	}
	return fetchBy(ctx, db, "session_cart_id", id.SessionCartID)
}

func fetchBy(ctx context.Context, db sqlx.ExtContext, col, val string) (Cart, error) {
	q := `SELECT ` + cartColumns + ` FROM carts WHERE ` + col + ` = $1`

	var c Cart
	if err := database.GetContext(ctx, db, &c, q, val); err != nil {
		return Cart{}, fmt.Errorf("selecting cart by %s[%s]: %w", col, val, err)
	}
	return c, nil
}

// Save writes the whole cart, creating it on first use.
func Save(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	q := `
	INSERT INTO carts
		(cart_id, user_id, session_cart_id, items, delivery_method,
		items_price, shipping_price, tax_price, total_price, created_at, updated_at)
	VALUES
		(:cart_id, :user_id, :session_cart_id, :items, :delivery_method,
		:items_price, :shipping_price, :tax_price, :total_price, :created_at, :updated_at)
	ON CONFLICT (cart_id) DO UPDATE SET
		items = EXCLUDED.items,
		delivery_method = EXCLUDED.delivery_method,
		items_price = EXCLUDED.items_price,
		shipping_price = EXCLUDED.shipping_price,
		tax_price = EXCLUDED.tax_price,
		total_price = EXCLUDED.total_price,
		updated_at = EXCLUDED.updated_at`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("saving cart[%s]: %w", c.ID, err)
	}
	return nil
}

// Clear empties the cart and zeroes its prices.
func Clear(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	q := `
	UPDATE carts SET
		items = '[]',
		items_price = 0,
		shipping_price = 0,
		tax_price = 0,
		total_price = 0,
		updated_at = $2
	WHERE cart_id = $1`

	n, err := database.ExecContext(ctx, db, q, cartID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clearing cart[%s]: %w", cartID, err)
	}
	if n == 0 {
		return fmt.Errorf("clearing cart[%s]: %w", cartID, database.ErrDBNotFound)
	}
	return nil
}

// Attach hands the anonymous session cart over to a user who just signed
// in. A non-empty session cart replaces the cart the user had before.
func Attach(ctx context.Context, db *sqlx.DB, sessionCartID, userID string) error {
	if sessionCartID == "" {
		return nil
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		c, err := fetchBy(ctx, tx, "session_cart_id", sessionCartID)
		if errors.Is(err, database.ErrDBNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(c.Items) == 0 || (c.UserID != nil && *c.UserID == userID) {
			return nil
		}

		q := `DELETE FROM carts WHERE user_id = $1 AND cart_id <> $2`
		if _, err := database.ExecContext(ctx, tx, q, userID, c.ID); err != nil {
			return fmt.Errorf("dropping previous cart of user[%s]: %w", userID, err)
		}

		q = `UPDATE carts SET user_id = $1, updated_at = $2 WHERE cart_id = $3`
		if _, err := database.ExecContext(ctx, tx, q, userID, time.Now().UTC(), c.ID); err != nil {
			return fmt.Errorf("attaching cart[%s] to user[%s]: %w", c.ID, userID, err)
		}
		return nil
	})
}
