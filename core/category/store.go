package category

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Category) error {
	q := `
	INSERT INTO categories
		(category_id, name, slug, created_at, updated_at)
	VALUES
		(:category_id, :name, :slug, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Category) error {
	q := `
	UPDATE categories SET
		name = :name,
		slug = :slug,
		updated_at = :updated_at
	WHERE category_id = :category_id`

	n, err := database.NamedExecRows(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating category[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating category[%s]: %w", c.ID, database.ErrDBNotFound)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	n, err := database.ExecContext(ctx, db, `DELETE FROM categories WHERE category_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting category[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting category[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Category, error) {
	q := `
	SELECT category_id, name, slug, created_at, updated_at
	FROM categories
	WHERE category_id = $1`

	var c Category
	if err := database.GetContext(ctx, db, &c, q, id); err != nil {
		return Category{}, fmt.Errorf("selecting category[%s]: %w", id, err)
	}
	return c, nil
}

// QueryCounts lists every category by name with its product count.
func QueryCounts(ctx context.Context, db sqlx.ExtContext) ([]Count, error) {
	q := `
	SELECT c.category_id, c.name, c.slug, c.created_at, c.updated_at, COUNT(p.product_id) AS products
	FROM categories c
	LEFT JOIN products p ON p.category_id = c.category_id
	GROUP BY c.category_id
	ORDER BY c.name`

	counts := []Count{}
	if err := database.SelectContext(ctx, db, &counts, q); err != nil {
		return nil, fmt.Errorf("selecting categories: %w", err)
	}
	return counts, nil
}
