// Package pricing computes the money fields of a cart. Every function is
// pure: the same lines, zone and rules always produce the same prices.
package pricing

import (
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/shopspring/decimal"
)

// TaxRate is the VAT applied to the items price.
var TaxRate = decimal.RequireFromString("0.21")

// Line is one cart position: unit price, quantity and unit weight in kg.
type Line struct {
	Price  decimal.Decimal
	Qty    int
	Weight decimal.Decimal
}

type Prices struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice" db:"items_price"`
	ShippingPrice decimal.Decimal `json:"shippingPrice" db:"shipping_price"`
	TaxPrice      decimal.Decimal `json:"taxPrice" db:"tax_price"`
	TotalPrice    decimal.Decimal `json:"totalPrice" db:"total_price"`
}

// Round2 rounds to cents, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func ItemsPrice(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return Round2(sum)
}

func TotalWeight(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Weight.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return sum
}

func Tax(itemsPrice decimal.Decimal) decimal.Decimal {
	return Round2(itemsPrice.Mul(TaxRate))
}

type Calculator struct {
	Fallback shipping.Fallback
}

// Calculate prices lines shipped to zone. rules may hold any rules; only
// those matching zone and the total weight are considered, and the cheapest
// wins. Without a match the fallback tiers apply. An empty cart costs
// nothing, shipping included.
func (c Calculator) Calculate(lines []Line, zone shipping.Zone, rules []shipping.Rule) Prices {
	if len(lines) == 0 {
		return Prices{
			ItemsPrice:    decimal.Zero,
			ShippingPrice: decimal.Zero,
			TaxPrice:      decimal.Zero,
			TotalPrice:    decimal.Zero,
		}
	}

	items := ItemsPrice(lines)
	quote := shipping.Price(rules, c.Fallback, zone, TotalWeight(lines))

	p := Prices{
		ItemsPrice:    items,
		ShippingPrice: Round2(quote.Price),
		TaxPrice:      Tax(items),
	}
	p.TotalPrice = Round2(p.ItemsPrice.Add(p.ShippingPrice).Add(p.TaxPrice))
	return p
}
