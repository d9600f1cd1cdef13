package category

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		counts, err := QueryCounts(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, counts, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CategoryNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return validate.Invalid(err)
		}

		now := time.Now().UTC()
		c := Category{
			ID:        validate.GenerateID(),
			Name:      cn.Name,
			Slug:      cn.Slug,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, c); err != nil {
			return storeError(err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cu CategoryUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return validate.Invalid(err)
		}

		c, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		if cu.Name != nil {
			c.Name = *cu.Name
		}
		if cu.Slug != nil {
			c.Slug = *cu.Slug
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return storeError(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := Delete(ctx, db, id); err != nil {
			return storeError(err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Category deleted successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func storeError(err error) error {
	switch {
	case errors.Is(err, database.ErrDBNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, database.ErrDBDuplicatedEntry):
		return validate.Invalid(validate.FieldErrors{"slug": "slug is already taken"})
	case errors.Is(err, database.ErrDBReferenced):
		return weberr.Conflict(errors.New("category still has products"))
	}
	return err
}
