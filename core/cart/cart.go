package cart

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/core/pricing"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/shopspring/decimal"
)

var (
	ErrNotEnoughStock = errors.New("not enough stock")
	ErrWeightLimit    = errors.New("cart weight limit exceeded")
	ErrItemNotFound   = errors.New("item not found in cart")
)

// Item is a cart position. Name, price and weight are copied from the
// product when it is first added and are not refreshed afterwards.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Weight    decimal.Decimal `json:"weight"`
}

// Items is stored as a JSON array.
type Items []Item

func (it Items) Value() (driver.Value, error) {
	if it == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(it)
}

func (it *Items) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*it = Items{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into cart items", src)
	}
	return json.Unmarshal(b, it)
}

// Cart belongs to a user or, before sign in, to an anonymous session.
type Cart struct {
	ID             string        `json:"id" db:"cart_id"`
	UserID         *string       `json:"userId,omitempty" db:"user_id"`
	SessionCartID  string        `json:"-" db:"session_cart_id"`
	Items          Items         `json:"items" db:"items"`
	DeliveryMethod shipping.Zone `json:"deliveryMethod" db:"delivery_method"`
	pricing.Prices
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is who a cart is looked up for: the signed in user when known,
// else the anonymous session cart.
type Identity struct {
	UserID        string
	SessionCartID string
}

// Empty returns an unsaved cart for id with nothing in it.
func Empty(id Identity) Cart {
	now := time.Now().UTC()
	c := Cart{
		ID:             validate.GenerateID(),
		SessionCartID:  id.SessionCartID,
		Items:          Items{},
		DeliveryMethod: shipping.International,
		Prices:         pricing.Calculator{}.Calculate(nil, shipping.International, nil),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// User carts get their own key so they never collide with an
	// anonymous cart left in the same session.
	if id.UserID != "" {
		uid := id.UserID
		c.UserID = &uid
		c.SessionCartID = validate.GenerateID()
	}
	return c
}

func (c Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = pricing.Line{Price: it.Price, Qty: it.Qty, Weight: it.Weight}
	}
	return lines
}

func (c Cart) Weight() decimal.Decimal {
	return pricing.TotalWeight(c.Lines())
}

func (c Cart) find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem puts qty units of p in the cart. The cart is left untouched when
// the product stock or maxWeight would be exceeded.
func (c *Cart) AddItem(p product.Product, qty int, maxWeight decimal.Decimal) error {
	items := make(Items, len(c.Items))
	copy(items, c.Items)

	if i := c.find(p.ID); i >= 0 {
		items[i].Qty += qty
		if items[i].Qty > p.Stock {
			return ErrNotEnoughStock
		}
	} else {
		if qty > p.Stock {
			return ErrNotEnoughStock
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image(),
			Price:     p.Price,
			Qty:       qty,
			Weight:    p.Weight,
		})
	}

	next := Cart{Items: items}
	if next.Weight().GreaterThan(maxWeight) {
		return ErrWeightLimit
	}

	c.Items = items
	return nil
}

// RemoveItem takes one unit of a product out of the cart, dropping the
// position when none is left.
func (c *Cart) RemoveItem(productID string) (Item, error) {
	i := c.find(productID)
	if i < 0 {
		return Item{}, ErrItemNotFound
	}

	it := c.Items[i]
	if it.Qty > 1 {
		c.Items[i].Qty--
		return it, nil
	}

	c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
	return it, nil
}

func (c *Cart) ChangeDeliveryMethod(zone shipping.Zone) error {
	if !zone.Valid() {
		return fmt.Errorf("unknown delivery method %q", zone)
	}
	c.DeliveryMethod = zone
	return nil
}
