package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/irsalhamdi/honey-shop/api/web"
)

const (
	RequestIDHeader = "X-Request-Id"

	maxRequestIDLen = 64
)

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

// RequestID tags the request with the id sent by the client, or a fresh
// one, and echoes it back so a storefront can quote it to support.
func RequestID() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			if len(id) > maxRequestIDLen {
				id = id[:maxRequestIDLen]
			}

			w.Header().Set(RequestIDHeader, id)
			ctx = context.WithValue(ctx, reqIDKey, id)

			return handler(ctx, w, r.WithContext(ctx))
		}
		return h
	}
	return m
}

func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}
