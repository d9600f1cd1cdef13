package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

const productColumns = `product_id, name, slug, category_id, description, images, brand, price, stock,
	weight, rating, num_reviews, is_featured, banner, created_at, updated_at, version`

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

func Create(ctx context.Context, db sqlx.ExtContext, p Product) error {
	q := `
	INSERT INTO products
		(product_id, name, slug, category_id, description, images, brand, price, stock,
		weight, rating, num_reviews, is_featured, banner, created_at, updated_at, version)
	VALUES
		(:product_id, :name, :slug, :category_id, :description, :images, :brand, :price, :stock,
		:weight, :rating, :num_reviews, :is_featured, :banner, :created_at, :updated_at, :version)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// Update writes p when its version is still the stored one and bumps the
// version. A concurrent update makes it fail with database.ErrDBNotFound.
func Update(ctx context.Context, db sqlx.ExtContext, p Product) error {
	q := `
	UPDATE products SET
		name = :name,
		slug = :slug,
		category_id = :category_id,
		description = :description,
		images = :images,
		brand = :brand,
		price = :price,
		stock = :stock,
		weight = :weight,
		is_featured = :is_featured,
		banner = :banner,
		updated_at = :updated_at,
		version = version + 1
	WHERE product_id = :product_id AND version = :version`

	n, err := database.NamedExecRows(ctx, db, q, p)
	if err != nil {
		return fmt.Errorf("updating product[%s]: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating product[%s] version[%d]: %w", p.ID, p.Version, database.ErrDBNotFound)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	n, err := database.ExecContext(ctx, db, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting product[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	var p Product
	if err := database.GetContext(ctx, db, &p, q, id); err != nil {
		return Product{}, fmt.Errorf("selecting product[%s]: %w", id, err)
	}
	return p, nil
}

func FetchBySlug(ctx context.Context, db sqlx.ExtContext, slug string) (Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	var p Product
	if err := database.GetContext(ctx, db, &p, q, slug); err != nil {
		return Product{}, fmt.Errorf("selecting product with slug[%s]: %w", slug, err)
	}
	return p, nil
}

func QueryLatest(ctx context.Context, db sqlx.ExtContext, limit int) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC LIMIT $1`

	products := []Product{}
	if err := database.SelectContext(ctx, db, &products, q, limit); err != nil {
		return nil, fmt.Errorf("selecting latest products: %w", err)
	}
	return products, nil
}

func QueryFeatured(ctx context.Context, db sqlx.ExtContext, limit int) ([]Product, error) {
	q := `
	SELECT ` + productColumns + `
	FROM products
	WHERE is_featured AND banner <> ''
	ORDER BY created_at DESC
	LIMIT $1`

	products := []Product{}
	if err := database.SelectContext(ctx, db, &products, q, limit); err != nil {
		return nil, fmt.Errorf("selecting featured products: %w", err)
	}
	return products, nil
}

// Query returns one page of the products accepted by f together with the
// number of products accepted overall.
func Query(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Product, int, error) {
	where, args := f.where()

	var total int
	cq := `SELECT COUNT(*) FROM products` + where
	if err := database.GetContext(ctx, db, &total, cq, args...); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	limit, offset := f.window()
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, f.orderBy(), len(args)-1, len(args))

	products := []Product{}
	if err := database.SelectContext(ctx, db, &products, q, args...); err != nil {
		return nil, 0, fmt.Errorf("selecting products: %w", err)
	}
	return products, total, nil
}

// DecrementStock removes qty units of a product from stock.
func DecrementStock(ctx context.Context, db sqlx.ExtContext, id string, qty int) error {
	q := `UPDATE products SET stock = stock - $1, version = version + 1 WHERE product_id = $2`

	n, err := database.ExecContext(ctx, db, q, qty, id)
	if err != nil {
		return fmt.Errorf("decrementing stock of product[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("decrementing stock of product[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

// RefreshRating recomputes the rating and review count from the reviews
// table.
func RefreshRating(ctx context.Context, db sqlx.ExtContext, id string) error {
	q := `
	UPDATE products SET
		rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM reviews WHERE product_id = $1), 0),
		num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1)
	WHERE product_id = $1`

	if _, err := database.ExecContext(ctx, db, q, id); err != nil {
		return fmt.Errorf("refreshing rating of product[%s]: %w", id, err)
	}
	return nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	var n int
	if err := database.GetContext(ctx, db, &n, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Query != "" {
		add("name ILIKE '%%' || $%d || '%%'", f.Query)
	}
	if f.Category != "" {
		add("category_id = (SELECT category_id FROM categories WHERE slug = $%d)", f.Category)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.MinRating != nil {
		add("rating >= $%d", *f.MinRating)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) orderBy() string {
	switch f.Sort {
	case SortLowest:
		return "price ASC, created_at DESC"
	case SortHighest:
		return "price DESC, created_at DESC"
	case SortRating:
		return "rating DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func (f Filter) window() (limit int, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
