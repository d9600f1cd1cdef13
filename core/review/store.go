package review

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

// Upsert stores the review of a user for a product, replacing the previous
// one when the user already reviewed it. The stored row is read back into r.
func Upsert(ctx context.Context, db sqlx.ExtContext, r *Review) error {
	q := `
	INSERT INTO reviews
		(review_id, user_id, product_id, rating, title, description, is_verified_purchase, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, product_id) DO UPDATE SET
		rating = EXCLUDED.rating,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		is_verified_purchase = EXCLUDED.is_verified_purchase,
		updated_at = EXCLUDED.updated_at
	RETURNING review_id, created_at`

	row := db.QueryRowxContext(ctx, q, r.ID, r.UserID, r.ProductID, r.Rating, r.Title, r.Description,
		r.IsVerifiedPurchase, r.CreatedAt, r.UpdatedAt)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("upserting review of product[%s] by user[%s]: %w", r.ProductID, r.UserID, err)
	}
	return nil
}

const selectReviews = `
	SELECT r.review_id, r.user_id, u.name AS user_name, r.product_id, r.rating, r.title, r.description,
		r.is_verified_purchase, r.created_at, r.updated_at
	FROM reviews r
	JOIN users u ON u.user_id = r.user_id`

func QueryByProduct(ctx context.Context, db sqlx.ExtContext, productID string) ([]Review, error) {
	q := selectReviews + ` WHERE r.product_id = $1 ORDER BY r.created_at DESC`

	reviews := []Review{}
	if err := database.SelectContext(ctx, db, &reviews, q, productID); err != nil {
		return nil, fmt.Errorf("selecting reviews of product[%s]: %w", productID, err)
	}
	return reviews, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, productID, userID string) (Review, error) {
	q := selectReviews + ` WHERE r.product_id = $1 AND r.user_id = $2`

	var r Review
	if err := database.GetContext(ctx, db, &r, q, productID, userID); err != nil {
		return Review{}, fmt.Errorf("selecting review of product[%s] by user[%s]: %w", productID, userID, err)
	}
	return r, nil
}

// Purchased reports whether the user paid for an order containing the product.
func Purchased(ctx context.Context, db sqlx.ExtContext, productID, userID string) (bool, error) {
	q := `
	SELECT EXISTS (
		SELECT 1 FROM order_items i
		JOIN orders o ON o.order_id = i.order_id
		WHERE i.product_id = $1 AND o.user_id = $2 AND o.is_paid
	)`

	var ok bool
	if err := database.GetContext(ctx, db, &ok, q, productID, userID); err != nil {
		return false, fmt.Errorf("checking purchase of product[%s] by user[%s]: %w", productID, userID, err)
	}
	return ok, nil
}
