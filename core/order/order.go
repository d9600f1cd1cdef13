package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/pricing"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/random"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrNotPaid           = errors.New("order is not paid")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoAddress         = errors.New("no shipping address")
	ErrNoPaymentMethod   = errors.New("no payment method")
	ErrPaymentIncomplete = errors.New("payment is not completed")
)

// PaymentResult is what the payment provider reported when the order was
// paid.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"updateTime"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

func (p PaymentResult) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PaymentResult) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("cannot scan %T into PaymentResult", src)
}

type Order struct {
	ID              string             `json:"id" db:"order_id"`
	UserFacingID    string             `json:"userFacingId" db:"user_facing_id"`
	UserID          string             `json:"userId" db:"user_id"`
	UserName        string             `json:"userName,omitempty" db:"user_name"`
	ShippingAddress user.Address       `json:"shippingAddress" db:"shipping_address"`
	PaymentMethod   user.PaymentMethod `json:"paymentMethod" db:"payment_method"`
	PaymentResult   *PaymentResult     `json:"paymentResult,omitempty" db:"payment_result"`
	DeliveryMethod  shipping.Zone      `json:"deliveryMethod" db:"delivery_method"`
	pricing.Prices
	IsPaid      bool       `json:"isPaid" db:"is_paid"`
	PaidAt      *time.Time `json:"paidAt,omitempty" db:"paid_at"`
	IsShipped   bool       `json:"isShipped" db:"is_shipped"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty" db:"shipped_at"`
	IsDelivered bool       `json:"isDelivered" db:"is_delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	Items       []Item     `json:"items,omitempty" db:"-"`
}

// Item is a product line frozen at checkout time.
type Item struct {
	OrderID   string          `json:"orderId" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Slug      string          `json:"slug" db:"slug"`
	Image     string          `json:"image" db:"image"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Qty       int             `json:"qty" db:"qty"`
	Weight    decimal.Decimal `json:"weight" db:"weight"`
}

// UserFacingID formats the id shown to customers, ORD-YYYYMMDD-NNNN.
func UserFacingID(t time.Time) string {
	return "ORD-" + t.UTC().Format("20060102") + "-" + random.Digits(4)
}

// FromCart snapshots c into a new unpaid order for u. The user must have
// a shipping address and a payment method and the cart must hold items.
func FromCart(c cart.Cart, u user.User, now time.Time) (Order, error) {
	switch {
	case len(c.Items) == 0:
		return Order{}, ErrEmptyCart
	case u.Address == nil:
		return Order{}, ErrNoAddress
	case !u.PaymentMethod.Valid():
		return Order{}, ErrNoPaymentMethod
	}

	o := Order{
		ID:              validate.GenerateID(),
		UserFacingID:    UserFacingID(now),
		UserID:          u.ID,
		UserName:        u.Name,
		ShippingAddress: *u.Address,
		PaymentMethod:   u.PaymentMethod,
		DeliveryMethod:  c.DeliveryMethod,
		Prices:          c.Prices,
		CreatedAt:       now,
	}

	o.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		o.Items[i] = Item{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Slug:      it.Slug,
			Image:     it.Image,
			Price:     it.Price,
			Qty:       it.Qty,
			Weight:    it.Weight,
		}
	}
	return o, nil
}

type MonthlySales struct {
	Month      string          `json:"month" db:"month"`
	TotalSales decimal.Decimal `json:"totalSales" db:"total_sales"`
}

// Summary feeds the admin dashboard.
type Summary struct {
	OrdersCount   int             `json:"ordersCount"`
	ProductsCount int             `json:"productsCount"`
	UsersCount    int             `json:"usersCount"`
	TotalSales    decimal.Decimal `json:"totalSales"`
	SalesData     []MonthlySales  `json:"salesData"`
	LatestSales   []Order         `json:"latestSales"`
}
