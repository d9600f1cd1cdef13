package cart

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/honey-shop/core/pricing"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/shopspring/decimal"
)

// Pricer recomputes the money fields of carts.
type Pricer struct {
	Calc      pricing.Calculator
	Rules     shipping.RuleSource
	MaxWeight decimal.Decimal
}

// Reprice recomputes every price of c from its items and delivery method.
func (p Pricer) Reprice(ctx context.Context, c *Cart) error {
	var rules []shipping.Rule
	if len(c.Items) > 0 {
		var err error
		rules, err = p.Rules.Matching(ctx, c.DeliveryMethod, c.Weight())
		if err != nil {
			return fmt.Errorf("fetching shipping rules: %w", err)
		}
	}

	c.Prices = p.Calc.Calculate(c.Lines(), c.DeliveryMethod, rules)
	return nil
}
