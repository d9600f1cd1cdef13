package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/country"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

const pageSize = 10

type Page struct {
	Data       []User `json:"data"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

func current(ctx context.Context, db *sqlx.DB) (User, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return User{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	u, err := Fetch(ctx, db, clm.UserID)
	if errors.Is(err, database.ErrDBNotFound) {
		return User{}, weberr.NotFound(err)
	}
	return u, err
}

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		u, err := current(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleUpdateCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var uu UserUp
		if err := web.Decode(w, r, &uu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(uu); err != nil {
			return validate.Invalid(err)
		}

		u, err := current(ctx, db)
		if err != nil {
			return err
		}

		if uu.Name != nil {
			u.Name = *uu.Name
		}
		u.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, u); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "User updated successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleUpdateAddress saves the shipping address used by checkout. The
// country must be one the shop delivers to.
func HandleUpdateAddress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var addr Address
		if err := web.Decode(w, r, &addr); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		addr.Country = country.Normalize(addr.Country)
		if err := validate.Check(addr); err != nil {
			return validate.Invalid(err)
		}

		ok, err := country.Exists(ctx, db, addr.Country)
		if err != nil {
			return err
		}
		if !ok {
			return validate.Invalid(validate.FieldErrors{"country": "we do not deliver to this country"})
		}

		u, err := current(ctx, db)
		if err != nil {
			return err
		}

		u.Address = &addr
		u.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, u); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "User updated successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleUpdatePaymentMethod(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pm PaymentMethodUp
		if err := web.Decode(w, r, &pm); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pm); err != nil {
			return validate.Invalid(err)
		}

		u, err := current(ctx, db)
		if err != nil {
			return err
		}

		u.PaymentMethod = pm.Type
		u.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, u); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "User updated successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		page := web.QueryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}

		users, total, err := Query(ctx, db, query, page, pageSize)
		if err != nil {
			return err
		}

		res := Page{Data: users, Total: total, TotalPages: (total + pageSize - 1) / pageSize}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if !claims.CanAccess(ctx, id) {
			return weberr.Forbidden(fmt.Errorf("user[%s] is not accessible to the caller", id))
		}

		u, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

// HandleCreate lets an admin register an already active account.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(un); err != nil {
			return validate.Invalid(err)
		}

		hash, err := HashPassword(un.Password)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		u := User{
			ID:           validate.GenerateID(),
			Name:         un.Name,
			Email:        strings.ToLower(un.Email),
			PasswordHash: hash,
			Role:         un.Role,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		}

		if err := Create(ctx, db, u); err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return validate.Invalid(validate.FieldErrors{"email": "email is already in use"})
			}
			return err
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var uu UserAdminUp
		if err := web.Decode(w, r, &uu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(uu); err != nil {
			return validate.Invalid(err)
		}

		u, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		if uu.Name != nil {
			u.Name = *uu.Name
		}
		if uu.Role != nil {
			u.Role = *uu.Role
		}
		u.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, u); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "User updated successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if claims.IsUser(ctx, id) {
			return weberr.Conflict(errors.New("you cannot delete your own account"))
		}

		err := Delete(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "User deleted successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
