package shipping

import (
	"sort"
	"time"

	"github.com/irsalhamdi/honey-shop/config"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/shopspring/decimal"
)

// Zone is the delivery method chosen for a cart: a worldwide carrier or the
// regional parcel locker network.
type Zone string

const (
	International Zone = "international"
	Omniva        Zone = "omniva"
)

func (z Zone) Valid() bool {
	return z == International || z == Omniva
}

// Rule prices deliveries to a zone whose total weight (kg) falls inside the
// inclusive [MinWeight, MaxWeight] range.
type Rule struct {
	ID        string          `json:"id" db:"rule_id"`
	Zone      Zone            `json:"zone" db:"zone"`
	MinWeight decimal.Decimal `json:"minWeight" db:"min_weight"`
	MaxWeight decimal.Decimal `json:"maxWeight" db:"max_weight"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Carrier   string          `json:"carrier" db:"carrier"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

type RuleNew struct {
	Zone      Zone            `json:"zone" validate:"required,oneof=international omniva"`
	MinWeight decimal.Decimal `json:"minWeight"`
	MaxWeight decimal.Decimal `json:"maxWeight"`
	Price     decimal.Decimal `json:"price"`
	Carrier   string          `json:"carrier" validate:"required"`
}

func (rn RuleNew) Validate() error {
	if err := validate.Check(rn); err != nil {
		return err
	}
	return checkRange(rn.MinWeight, rn.MaxWeight, rn.Price)
}

type RuleUp struct {
	Zone      *Zone            `json:"zone" validate:"omitempty,oneof=international omniva"`
	MinWeight *decimal.Decimal `json:"minWeight"`
	MaxWeight *decimal.Decimal `json:"maxWeight"`
	Price     *decimal.Decimal `json:"price"`
	Carrier   *string          `json:"carrier"`
}

func checkRange(min, max, price decimal.Decimal) error {
	fe := validate.FieldErrors{}
	if min.IsNegative() {
		fe["minWeight"] = "minWeight must be 0 or greater"
	}
	if max.LessThan(min) {
		fe["maxWeight"] = "maxWeight must be greater or equal to minWeight"
	}
	if price.IsNegative() {
		fe["price"] = "price must be 0 or greater"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Matches reports whether the rule prices weight for zone. Both bounds are
// inclusive.
func (r Rule) Matches(zone Zone, weight decimal.Decimal) bool {
	return r.Zone == zone &&
		weight.GreaterThanOrEqual(r.MinWeight) &&
		weight.LessThanOrEqual(r.MaxWeight)
}

// Filter returns the rules matching zone and weight, cheapest first.
func Filter(rules []Rule, zone Zone, weight decimal.Decimal) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Matches(zone, weight) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// Cheapest returns the lowest priced rule matching zone and weight.
func Cheapest(rules []Rule, zone Zone, weight decimal.Decimal) (Rule, bool) {
	matching := Filter(rules, zone, weight)
	if len(matching) == 0 {
		return Rule{}, false
	}
	return matching[0], true
}

// Fallback prices a delivery when no rule matches. International parcels
// are priced by tier; omniva parcels have a flat price.
type Fallback struct {
	LightMaxWeight  decimal.Decimal
	LightPrice      decimal.Decimal
	MediumMaxWeight decimal.Decimal
	MediumPrice     decimal.Decimal
	ExtraPerKg      decimal.Decimal
	OmnivaPrice     decimal.Decimal
}

func NewFallback(cfg config.Shipping) Fallback {
	return Fallback{
		LightMaxWeight:  decimal.NewFromFloat(cfg.LightMaxWeight),
		LightPrice:      decimal.NewFromFloat(cfg.LightPrice),
		MediumMaxWeight: decimal.NewFromFloat(cfg.MediumMaxWeight),
		MediumPrice:     decimal.NewFromFloat(cfg.MediumPrice),
		ExtraPerKg:      decimal.NewFromFloat(cfg.ExtraPerKg),
		OmnivaPrice:     decimal.NewFromFloat(cfg.OmnivaPrice),
	}
}

func (f Fallback) Price(zone Zone, weight decimal.Decimal) decimal.Decimal {
	if zone == Omniva {
		return f.OmnivaPrice
	}

	switch {
	case weight.LessThanOrEqual(f.LightMaxWeight):
		return f.LightPrice
	case weight.LessThanOrEqual(f.MediumMaxWeight):
		return f.MediumPrice
	}

	excess := weight.Sub(f.MediumMaxWeight).Ceil()
	return f.MediumPrice.Add(f.ExtraPerKg.Mul(excess))
}

// Quote is the price of shipping a given weight to a zone.
type Quote struct {
	Zone    Zone            `json:"zone"`
	Weight  decimal.Decimal `json:"weight"`
	Price   decimal.Decimal `json:"price"`
	Carrier string          `json:"carrier,omitempty"`
	RuleID  string          `json:"ruleId,omitempty"`
}

// Price returns the cheapest matching rule price or the fallback price.
func Price(rules []Rule, fb Fallback, zone Zone, weight decimal.Decimal) Quote {
	q := Quote{Zone: zone, Weight: weight}
	if r, ok := Cheapest(rules, zone, weight); ok {
		q.Price = r.Price
		q.Carrier = r.Carrier
		q.RuleID = r.ID
		return q
	}

	q.Price = fb.Price(zone, weight)
	return q
}
