package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/email"
	"github.com/irsalhamdi/honey-shop/events"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/printing"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const (
	pageSize    = 10
	latestSales = 6
)

type Page struct {
	Data       []Order `json:"data"`
	Total      int     `json:"total"`
	TotalPages int     `json:"totalPages"`
}

// rejection turns order rule violations into client errors.
func rejection(err error) error {
	switch {
	case isMissing(err):
		return weberr.NotFound(err)
	case errors.Is(err, ErrAlreadyPaid):
		return weberr.NewError(err, "Order is already paid", http.StatusConflict)
	case errors.Is(err, ErrNotPaid):
		return weberr.NewError(err, "Order is not paid", http.StatusConflict)
	case errors.Is(err, ErrEmptyCart):
		return weberr.NewError(err, "Your cart is empty", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNoAddress):
		return weberr.NewError(err, "Shipping address is required", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNoPaymentMethod):
		return weberr.NewError(err, "Payment method is required", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrPaymentIncomplete):
		return weberr.NewError(err, "Payment was not completed", http.StatusPaymentRequired)
	}
	return err
}

// accessible fetches an order that belongs to the caller, or any order
// for admins.
func accessible(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	if err := validate.CheckID(id); err != nil {
		return Order{}, weberr.BadRequest(err)
	}

	o, err := Fetch(ctx, db, id)
	if err != nil {
		return Order{}, rejection(err)
	}

	if !claims.CanAccess(ctx, o.UserID) {
		return Order{}, weberr.Forbidden(fmt.Errorf("order[%s] is not accessible to the caller", id))
	}
	return o, nil
}

func page(r *http.Request) int {
	p := web.QueryInt(r, "page", 1)
	if p < 1 {
		return 1
	}
	return p
}

func HandleCreate(db *sqlx.DB, n Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		u, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return rejection(err)
		}

		c, err := cart.Fetch(ctx, db, cart.Identity{UserID: u.ID})
		if isMissing(err) {
			return rejection(ErrEmptyCart)
		}
		if err != nil {
			return err
		}

		o, err := Place(ctx, db, c, u)
		if err != nil {
			return rejection(err)
		}

		n.Publish(ctx, events.OrderCreated, o)

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order created successfully"), Data: o}
		return web.Respond(ctx, w, res, http.StatusCreated)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		o, err := accessible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if o.Items, err = FetchItems(ctx, db, o.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, o, http.StatusOK)
	}
}

func HandleListMine(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, total, err := QueryByUser(ctx, db, clm.UserID, page(r), pageSize)
		if err != nil {
			return err
		}

		res := Page{Data: orders, Total: total, TotalPages: (total + pageSize - 1) / pageSize}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := strings.TrimSpace(r.URL.Query().Get("user"))

		orders, total, err := Query(ctx, db, name, page(r), pageSize)
		if err != nil {
			return err
		}

		res := Page{Data: orders, Total: total, TotalPages: (total + pageSize - 1) / pageSize}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := Delete(ctx, db, id); err != nil {
			return rejection(err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order deleted successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleMarkPaid settles cash on delivery orders.
func HandleMarkPaid(db *sqlx.DB, n Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		res := PaymentResult{
			ID:         id,
			Status:     "COMPLETED",
			UpdateTime: time.Now().UTC().Format(time.RFC3339),
		}

		o, err := pay(ctx, db, n, id, res)
		if err != nil {
			return rejection(err)
		}

		out := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order marked as paid"), Data: o}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleShip(db *sqlx.DB, n Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		o, err := Ship(ctx, db, id)
		if err != nil {
			return rejection(err)
		}

		n.Publish(ctx, events.OrderShipped, o)

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order marked as shipped"), Data: o}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleDeliver(db *sqlx.DB, n Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		o, err := Deliver(ctx, db, id)
		if err != nil {
			return rejection(err)
		}

		n.Publish(ctx, events.OrderDelivered, o)

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Order marked as delivered"), Data: o}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleSummary(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var s Summary

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			s.OrdersCount, err = Count(gctx, db)
			return err
		})
		g.Go(func() (err error) {
			s.ProductsCount, err = product.Count(gctx, db)
			return err
		})
		g.Go(func() (err error) {
			s.UsersCount, err = user.Count(gctx, db)
			return err
		})
		g.Go(func() (err error) {
			s.TotalSales, err = TotalSales(gctx, db)
			return err
		})
		g.Go(func() (err error) {
			s.SalesData, err = MonthlySalesData(gctx, db)
			return err
		})
		g.Go(func() (err error) {
			s.LatestSales, err = QueryLatest(gctx, db, latestSales)
			return err
		})

		if err := g.Wait(); err != nil {
			return fmt.Errorf("building order summary: %w", err)
		}

		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

// HandleReceipt renders the receipt of a paid order as a PDF.
func HandleReceipt(db *sqlx.DB, pdf printing.Renderer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		o, err := accessible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}
		if !o.IsPaid {
			return rejection(ErrNotPaid)
		}

		items, err := FetchItems(ctx, db, o.ID)
		if err != nil {
			return err
		}

		html, err := email.ReceiptHTML(Receipt(o, items))
		if err != nil {
			return err
		}

		b, err := pdf.Render(ctx, html)
		if err != nil {
			return fmt.Errorf("printing receipt of order[%s]: %w", o.ID, err)
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, o.UserFacingID))
		return web.RespondBytes(w, b, "application/pdf", http.StatusOK)
	}
}
