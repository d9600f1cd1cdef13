package shipping

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
	"github.com/shopspring/decimal"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		zone := Zone(r.URL.Query().Get("zone"))

		var rules []Rule
		var err error
		if zone == "" {
			rules, err = Query(ctx, db)
		} else {
			if !zone.Valid() {
				return validate.Invalid(validate.FieldErrors{"zone": "zone must be one of [international omniva]"})
			}
			rules, err = QueryByZone(ctx, db, zone)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, rules, http.StatusOK)
	}
}

// HandleQuote prices a parcel without a cart, as shown on product pages.
func HandleQuote(src RuleSource, fb Fallback) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		zone := Zone(r.URL.Query().Get("zone"))
		if !zone.Valid() {
			return validate.Invalid(validate.FieldErrors{"zone": "zone must be one of [international omniva]"})
		}

		weight, err := decimal.NewFromString(r.URL.Query().Get("weight"))
		if err != nil || weight.IsNegative() {
			return validate.Invalid(validate.FieldErrors{"weight": "weight must be a non negative number"})
		}

		rules, err := src.Matching(ctx, zone, weight)
		if err != nil {
			return fmt.Errorf("fetching shipping rules: %w", err)
		}

		return web.Respond(ctx, w, Price(rules, fb, zone, weight), http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		rule, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, rule, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB, src RuleSource) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rn RuleNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := rn.Validate(); err != nil {
			return validate.Invalid(err)
		}

		now := time.Now().UTC()
		rule := Rule{
			ID:        validate.GenerateID(),
			Zone:      rn.Zone,
			MinWeight: rn.MinWeight,
			MaxWeight: rn.MaxWeight,
			Price:     rn.Price,
			Carrier:   rn.Carrier,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, rule); err != nil {
			return err
		}

		if err := src.Invalidate(ctx, rule.Zone); err != nil {
			return fmt.Errorf("invalidating cached rules: %w", err)
		}

		return web.Respond(ctx, w, rule, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB, src RuleSource) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var ru RuleUp
		if err := web.Decode(w, r, &ru); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ru); err != nil {
			return validate.Invalid(err)
		}

		rule, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		oldZone := rule.Zone
		if ru.Zone != nil {
			rule.Zone = *ru.Zone
		}
		if ru.MinWeight != nil {
			rule.MinWeight = *ru.MinWeight
		}
		if ru.MaxWeight != nil {
			rule.MaxWeight = *ru.MaxWeight
		}
		if ru.Price != nil {
			rule.Price = *ru.Price
		}
		if ru.Carrier != nil {
			rule.Carrier = *ru.Carrier
		}

		if err := checkRange(rule.MinWeight, rule.MaxWeight, rule.Price); err != nil {
			return validate.Invalid(err)
		}

		rule.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, rule); err != nil {
			return err
		}

		if err := src.Invalidate(ctx, oldZone, rule.Zone); err != nil {
			return fmt.Errorf("invalidating cached rules: %w", err)
		}

		return web.Respond(ctx, w, rule, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB, src RuleSource) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		rule, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		if err := Delete(ctx, db, id); err != nil {
			return err
		}

		if err := src.Invalidate(ctx, rule.Zone); err != nil {
			return fmt.Errorf("invalidating cached rules: %w", err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Shipping rule deleted")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
