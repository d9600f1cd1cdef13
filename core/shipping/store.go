package shipping

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const ruleColumns = `rule_id, zone, min_weight, max_weight, price, carrier, created_at, updated_at`

func Query(ctx context.Context, db sqlx.ExtContext) ([]Rule, error) {
	q := `
	SELECT ` + ruleColumns + `
	FROM shipping_rules
	ORDER BY zone, min_weight, price`

	rules := []Rule{}
	if err := database.SelectContext(ctx, db, &rules, q); err != nil {
		return nil, fmt.Errorf("selecting shipping rules: %w", err)
	}
	return rules, nil
}

func QueryByZone(ctx context.Context, db sqlx.ExtContext, zone Zone) ([]Rule, error) {
	q := `
	SELECT ` + ruleColumns + `
	FROM shipping_rules
	WHERE zone = $1
	ORDER BY min_weight, price`

	rules := []Rule{}
	if err := database.SelectContext(ctx, db, &rules, q, zone); err != nil {
		return nil, fmt.Errorf("selecting shipping rules of zone[%s]: %w", zone, err)
	}
	return rules, nil
}

// QueryMatching returns the rules of zone whose range contains weight,
// cheapest first.
func QueryMatching(ctx context.Context, db sqlx.ExtContext, zone Zone, weight decimal.Decimal) ([]Rule, error) {
	q := `
	SELECT ` + ruleColumns + `
	FROM shipping_rules
	WHERE zone = $1 AND min_weight <= $2 AND max_weight >= $2
	ORDER BY price`

	rules := []Rule{}
	if err := database.SelectContext(ctx, db, &rules, q, zone, weight); err != nil {
		return nil, fmt.Errorf("selecting shipping rules for zone[%s] weight[%s]: %w", zone, weight, err)
	}
	return rules, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Rule, error) {
	q := `
	SELECT ` + ruleColumns + `
	FROM shipping_rules
	WHERE rule_id = $1`

	var r Rule
	if err := database.GetContext(ctx, db, &r, q, id); err != nil {
		return Rule{}, fmt.Errorf("selecting shipping rule[%s]: %w", id, err)
	}
	return r, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, r Rule) error {
	q := `
	INSERT INTO shipping_rules
		(rule_id, zone, min_weight, max_weight, price, carrier, created_at, updated_at)
	VALUES
		(:rule_id, :zone, :min_weight, :max_weight, :price, :carrier, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, r); err != nil {
		return fmt.Errorf("inserting shipping rule: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, r Rule) error {
	q := `
	UPDATE shipping_rules SET
		zone = :zone,
		min_weight = :min_weight,
		max_weight = :max_weight,
		price = :price,
		carrier = :carrier,
		updated_at = :updated_at
	WHERE rule_id = :rule_id`

	n, err := database.NamedExecRows(ctx, db, q, r)
	if err != nil {
		return fmt.Errorf("updating shipping rule[%s]: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating shipping rule[%s]: %w", r.ID, database.ErrDBNotFound)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	q := `DELETE FROM shipping_rules WHERE rule_id = $1`

	n, err := database.ExecContext(ctx, db, q, id)
	if err != nil {
		return fmt.Errorf("deleting shipping rule[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting shipping rule[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}
