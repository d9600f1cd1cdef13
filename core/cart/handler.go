package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/core/shipping"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

const sessionCartKey = "sessionCartID"

type ItemNew struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"omitempty,gte=1,lte=100"`
}

type DeliveryMethodUp struct {
	DeliveryMethod shipping.Zone `json:"deliveryMethod" validate:"required,oneof=international omniva"`
}

// SessionCartID returns the anonymous cart key of the session, if any.
func SessionCartID(ctx context.Context, session *scs.SessionManager) string {
	return session.GetString(ctx, sessionCartKey)
}

// identity resolves the caller, giving anonymous sessions a cart key on
// first use.
func identity(ctx context.Context, session *scs.SessionManager) Identity {
	id := Identity{SessionCartID: SessionCartID(ctx, session)}
	if id.SessionCartID == "" {
		id.SessionCartID = validate.GenerateID()
		session.Put(ctx, sessionCartKey, id.SessionCartID)
	}

	if clm, err := claims.Get(ctx); err == nil {
		id.UserID = clm.UserID
	}
	return id
}

func load(ctx context.Context, db sqlx.ExtContext, id Identity) (Cart, error) {
	c, err := Fetch(ctx, db, id)
	if errors.Is(err, database.ErrDBNotFound) {
		return Empty(id), nil
	}
	return c, err
}

func rejection(err error) error {
	switch {
	case errors.Is(err, ErrNotEnoughStock):
		return weberr.NewError(err, "Not enough stock", http.StatusConflict)
	case errors.Is(err, ErrWeightLimit):
		return weberr.NewError(err, "Cart weight limit exceeded", http.StatusConflict)
	case errors.Is(err, ErrItemNotFound):
		return weberr.NewError(err, "Item not found in cart", http.StatusNotFound)
	}
	return err
}

func HandleShow(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := load(ctx, db, identity(ctx, session))
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleAddItem(db *sqlx.DB, session *scs.SessionManager, pricer Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return validate.Invalid(err)
		}
		if in.Qty == 0 {
			in.Qty = 1
		}

		p, err := product.Fetch(ctx, db, in.ProductID)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		c, err := load(ctx, db, identity(ctx, session))
		if err != nil {
			return err
		}

		if err := c.AddItem(p, in.Qty, pricer.MaxWeight); err != nil {
			return rejection(err)
		}

		if err := save(ctx, db, pricer, &c); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "%s added to cart", p.Name), Data: c}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleRemoveItem(db *sqlx.DB, session *scs.SessionManager, pricer Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "product_id")

		c, err := Fetch(ctx, db, identity(ctx, session))
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		it, err := c.RemoveItem(productID)
		if err != nil {
			return rejection(err)
		}

		if err := save(ctx, db, pricer, &c); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "%s removed from cart", it.Name), Data: c}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleChangeDeliveryMethod(db *sqlx.DB, session *scs.SessionManager, pricer Pricer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in DeliveryMethodUp
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return validate.Invalid(err)
		}

		c, err := load(ctx, db, identity(ctx, session))
		if err != nil {
			return err
		}

		if err := c.ChangeDeliveryMethod(in.DeliveryMethod); err != nil {
			return validate.Invalid(validate.FieldErrors{"deliveryMethod": err.Error()})
		}

		if err := save(ctx, db, pricer, &c); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Delivery method updated"), Data: c}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := Fetch(ctx, db, identity(ctx, session))
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		if err := Clear(ctx, db, c.ID); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Cart cleared")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func save(ctx context.Context, db sqlx.ExtContext, pricer Pricer, c *Cart) error {
	if err := pricer.Reprice(ctx, c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	return Save(ctx, db, *c)
}
