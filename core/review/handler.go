package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/product"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

func HandleListByProduct(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		reviews, err := QueryByProduct(ctx, db, productID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, reviews, http.StatusOK)
	}
}

func HandleShowMine(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		rv, err := FetchByUser(ctx, db, productID, clm.UserID)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, rv, http.StatusOK)
	}
}

// HandleSave creates or replaces the caller's review of a product and
// refreshes the product rating in the same transaction.
func HandleSave(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var rn ReviewNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(rn); err != nil {
			return validate.Invalid(err)
		}

		if _, err := product.Fetch(ctx, db, rn.ProductID); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		rv := Review{
			ID:          validate.GenerateID(),
			UserID:      clm.UserID,
			ProductID:   rn.ProductID,
			Rating:      rn.Rating,
			Title:       rn.Title,
			Description: rn.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			bought, err := Purchased(ctx, tx, rv.ProductID, rv.UserID)
			if err != nil {
				return err
			}
			rv.IsVerifiedPurchase = bought

			if err := Upsert(ctx, tx, &rv); err != nil {
				return err
			}

			return product.RefreshRating(ctx, tx, rv.ProductID)
		})
		if err != nil {
			return fmt.Errorf("saving review: %w", err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Review saved successfully"), Data: rv}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
