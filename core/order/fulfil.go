package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/email"
	"github.com/irsalhamdi/honey-shop/events"
	"github.com/jmoiron/sqlx"
)

// Place turns the cart of u into an order and empties the cart, all in
// one transaction.
func Place(ctx context.Context, db *sqlx.DB, c cart.Cart, u user.User) (Order, error) {
	o, err := FromCart(c, u, time.Now().UTC())
	if err != nil {
		return Order{}, err
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, o); err != nil {
			return err
		}

		for _, it := range o.Items {
			if err := CreateItem(ctx, tx, it); err != nil {
				return err
			}
		}

		return cart.Clear(ctx, tx, c.ID)
	})
	if err != nil {
		return Order{}, fmt.Errorf("placing order for user[%s]: %w", u.ID, err)
	}

	return o, nil
}

// MarkPaid records the payment of an order and takes its items out of
// stock. An order is paid at most once: a second call fails with
// ErrAlreadyPaid and leaves stock alone.
func MarkPaid(ctx context.Context, db *sqlx.DB, id string, res PaymentResult) (Order, error) {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		ok, err := setPaid(ctx, tx, id, res, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			if _, err := Fetch(ctx, tx, id); err != nil {
				return err
			}
			return ErrAlreadyPaid
		}

		items, err := FetchItems(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, it := range items {
			if err := product.DecrementStock(ctx, tx, it.ProductID, it.Qty); err != nil {
				return fmt.Errorf("taking item out of stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("paying order[%s]: %w", id, err)
	}

	return Fetch(ctx, db, id)
}

func Ship(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	if err := setShipped(ctx, db, id, time.Now().UTC()); err != nil {
		return Order{}, err
	}
	return Fetch(ctx, db, id)
}

// Deliver flags a paid order as delivered. Shipping first is not required.
func Deliver(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	o, err := Fetch(ctx, db, id)
	if err != nil {
		return Order{}, err
	}
	if !o.IsPaid {
		return Order{}, fmt.Errorf("delivering order[%s]: %w", id, ErrNotPaid)
	}

	if err := setDelivered(ctx, db, id, time.Now().UTC()); err != nil {
		return Order{}, err
	}
	return Fetch(ctx, db, id)
}

// Receipt lays out a paid order for the receipt email and PDF.
func Receipt(o Order, items []Item) email.Receipt {
	r := email.Receipt{
		OrderID:        o.ID,
		UserFacingID:   o.UserFacingID,
		CustomerName:   o.ShippingAddress.FullName,
		Address:        o.ShippingAddress.String(),
		DeliveryMethod: string(o.DeliveryMethod),
		PaymentMethod:  string(o.PaymentMethod),
		ItemsPrice:     o.ItemsPrice,
		ShippingPrice:  o.ShippingPrice,
		TaxPrice:       o.TaxPrice,
		TotalPrice:     o.TotalPrice,
	}
	if o.PaidAt != nil {
		r.PaidAt = *o.PaidAt
	}

	r.Items = make([]email.ReceiptItem, len(items))
	for i, it := range items {
		r.Items[i] = email.ReceiptItem{Name: it.Name, Qty: it.Qty, Price: it.Price}
	}
	return r
}

type ReceiptMailer interface {
	SendReceipt(ctx context.Context, to string, r email.Receipt) error
}

// Notifier runs the side effects of order changes in the background.
// Their failure is logged and never undoes the change.
type Notifier struct {
	DB     *sqlx.DB
	Mailer ReceiptMailer
	Events events.Publisher
	BG     *background.Background
}

func (n Notifier) Publish(ctx context.Context, name string, o Order) {
	ctx = context.WithoutCancel(ctx)
	ev := events.New(name, o.ID, o.UserFacingID, o.UserID, o.TotalPrice)
	n.BG.Go("publish "+name, func() error {
		return n.Events.Publish(ctx, ev)
	})
}

// Paid mails the receipt of o to its customer and announces the payment.
func (n Notifier) Paid(ctx context.Context, o Order) {
	mailCtx := context.WithoutCancel(ctx)
	n.BG.Go("send receipt", func() error {
		u, err := user.Fetch(mailCtx, n.DB, o.UserID)
		if err != nil {
			return fmt.Errorf("fetching customer of order[%s]: %w", o.ID, err)
		}

		items, err := FetchItems(mailCtx, n.DB, o.ID)
		if err != nil {
			return err
		}

		return n.Mailer.SendReceipt(mailCtx, u.Email, Receipt(o, items))
	})

	n.Publish(ctx, events.OrderPaid, o)
}

// pay marks the order paid and, when that succeeds, notifies about it.
func pay(ctx context.Context, db *sqlx.DB, n Notifier, id string, res PaymentResult) (Order, error) {
	o, err := MarkPaid(ctx, db, id, res)
	if err != nil {
		return Order{}, err
	}

	n.Paid(ctx, o)
	return o, nil
}

func isMissing(err error) bool {
	return errors.Is(err, database.ErrDBNotFound)
}
