package country

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Country) error {
	q := `
	INSERT INTO countries
		(country_id, name, code, created_at, updated_at)
	VALUES
		(:country_id, :name, :code, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting country: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Country) error {
	q := `
	UPDATE countries SET
		name = :name,
		code = :code,
		updated_at = :updated_at
	WHERE country_id = :country_id`

	n, err := database.NamedExecRows(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating country[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating country[%s]: %w", c.ID, database.ErrDBNotFound)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	n, err := database.ExecContext(ctx, db, `DELETE FROM countries WHERE country_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting country[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting country[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Country, error) {
	q := `SELECT country_id, name, code, created_at, updated_at FROM countries WHERE country_id = $1`

	var c Country
	if err := database.GetContext(ctx, db, &c, q, id); err != nil {
		return Country{}, fmt.Errorf("selecting country[%s]: %w", id, err)
	}
	return c, nil
}

func Query(ctx context.Context, db sqlx.ExtContext) ([]Country, error) {
	q := `SELECT country_id, name, code, created_at, updated_at FROM countries ORDER BY name`

	countries := []Country{}
	if err := database.SelectContext(ctx, db, &countries, q); err != nil {
		return nil, fmt.Errorf("selecting countries: %w", err)
	}
	return countries, nil
}

// Exists reports whether code names a country the shop delivers to.
func Exists(ctx context.Context, db sqlx.ExtContext, code string) (bool, error) {
	var ok bool
	q := `SELECT EXISTS (SELECT 1 FROM countries WHERE code = $1)`
	if err := database.GetContext(ctx, db, &ok, q, Normalize(code)); err != nil {
		return false, fmt.Errorf("looking up country[%s]: %w", code, err)
	}
	return ok, nil
}
