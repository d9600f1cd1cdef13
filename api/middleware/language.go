package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/i18n"
)

// Language stores the request language in the context. The {lang} route
// segment wins over the Accept-Language header.
func Language() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			tag := i18n.Match(web.Param(r, "lang"), r.Header.Get("Accept-Language"))
			ctx = i18n.WithLanguage(ctx, tag)
			w.Header().Set("Content-Language", tag.String())

			return handler(ctx, w, r.WithContext(ctx))
		}
		return h
	}
	return m
}
