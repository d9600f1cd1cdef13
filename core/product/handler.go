package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	latestLimit   = 4
	featuredLimit = 4
)

// HandleList answers the catalog search: ?q=&category=&price=min-max&rating=&sort=&page=&limit=
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f, err := parseFilter(r)
		if err != nil {
			return validate.Invalid(err)
		}

		products, total, err := Query(ctx, db, f)
		if err != nil {
			return err
		}

		limit, _ := f.window()
		page := Page{
			Data:       products,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		}

		return web.Respond(ctx, w, page, http.StatusOK)
	}
}

func HandleLatest(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		limit := web.QueryInt(r, "limit", latestLimit)
		if limit < 1 || limit > MaxLimit {
			limit = latestLimit
		}

		products, err := QueryLatest(ctx, db, limit)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}

func HandleFeatured(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		products, err := QueryFeatured(ctx, db, featuredLimit)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}

func HandleShowBySlug(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		slug := web.Param(r, "slug")

		p, err := FetchBySlug(ctx, db, slug)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pn ProductNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := pn.Validate(); err != nil {
			return validate.Invalid(err)
		}

		now := time.Now().UTC()
		p := Product{
			ID:          validate.GenerateID(),
			Name:        pn.Name,
			Slug:        pn.Slug,
			CategoryID:  pn.CategoryID,
			Description: pn.Description,
			Images:      pn.Images,
			Brand:       pn.Brand,
			Price:       pn.Price,
			Stock:       pn.Stock,
			Weight:      pn.Weight,
			Rating:      decimal.Zero,
			IsFeatured:  pn.IsFeatured,
			Banner:      pn.Banner,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}

		if err := Create(ctx, db, p); err != nil {
			return storeError(err)
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var pu ProductUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return validate.Invalid(err)
		}

		p, err := Fetch(ctx, db, id)
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return err
		}

		if pu.Name != nil {
			p.Name = *pu.Name
		}
		if pu.Slug != nil {
			p.Slug = *pu.Slug
		}
		if pu.CategoryID != nil {
			p.CategoryID = *pu.CategoryID
		}
		if pu.Description != nil {
			p.Description = *pu.Description
		}
		if pu.Images != nil {
			p.Images = pu.Images
		}
		if pu.Brand != nil {
			p.Brand = *pu.Brand
		}
		if pu.Price != nil {
			p.Price = *pu.Price
		}
		if pu.Stock != nil {
			p.Stock = *pu.Stock
		}
		if pu.Weight != nil {
			p.Weight = *pu.Weight
		}
		if pu.IsFeatured != nil {
			p.IsFeatured = *pu.IsFeatured
		}
		if pu.Banner != nil {
			p.Banner = *pu.Banner
		}

		if err := checkAmounts(p.Price, p.Weight); err != nil {
			return validate.Invalid(err)
		}

		p.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, p); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.Conflict(errors.New("product was changed by someone else, reload and retry"))
			}
			return storeError(err)
		}
		p.Version++

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		err := Delete(ctx, db, id)
		switch {
		case errors.Is(err, database.ErrDBNotFound):
			return weberr.NotFound(err)
		case errors.Is(err, database.ErrDBReferenced):
			return weberr.Conflict(errors.New("product is part of existing orders"))
		case err != nil:
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Product deleted successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func storeError(err error) error {
	switch {
	case errors.Is(err, database.ErrDBDuplicatedEntry):
		return validate.Invalid(validate.FieldErrors{"slug": "slug is already taken"})
	case errors.Is(err, database.ErrDBReferenced):
		return validate.Invalid(validate.FieldErrors{"categoryId": "category does not exist"})
	}
	return err
}

func parseFilter(r *http.Request) (Filter, error) {
	v := r.URL.Query()
	f := Filter{
		Query:    strings.TrimSpace(v.Get("q")),
		Category: v.Get("category"),
		Sort:     Sort(v.Get("sort")),
		Page:     web.QueryInt(r, "page", 1),
		Limit:    web.QueryInt(r, "limit", DefaultLimit),
	}
	if f.Query == "all" {
		f.Query = ""
	}
	if f.Category == "all" {
		f.Category = ""
	}

	fe := validate.FieldErrors{}

	switch f.Sort {
	case "", SortNewest, SortLowest, SortHighest, SortRating:
	default:
		fe["sort"] = "sort must be one of [newest lowest highest rating]"
	}

	if price := v.Get("price"); price != "" && price != "all" {
		min, max, ok := strings.Cut(price, "-")
		lo, err1 := decimal.NewFromString(min)
		hi, err2 := decimal.NewFromString(max)
		if !ok || err1 != nil || err2 != nil || hi.LessThan(lo) {
			fe["price"] = "price must be a range like 1-50"
		} else {
			f.MinPrice, f.MaxPrice = &lo, &hi
		}
	}

	if rating := v.Get("rating"); rating != "" && rating != "all" {
		d, err := decimal.NewFromString(rating)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(5)) {
			fe["rating"] = "rating must be between 0 and 5"
		} else {
			f.MinRating = &d
		}
	}

	if len(fe) > 0 {
		return Filter{}, fe
	}
	return f, nil
}
