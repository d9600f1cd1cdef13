// Package auth keeps track of who is signed in. Identity lives in a server
// side session; handlers read it back through the claims package.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
)

// bufferedWriter holds the response back until the session cookie has been
// written.
type bufferedWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	return bw.buf.Write(b)
}

func (bw *bufferedWriter) WriteHeader(code int) {
	bw.code = code
}

// LoadAndSave loads the session of the request and, once the handler is
// done, commits it and sets the session cookie.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Add("Vary", "Cookie")

			var token string
			if c, err := r.Cookie(session.Cookie.Name); err == nil {
				token = c.Value
			}

			ctx, err := session.Load(ctx, token)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}
			r = r.WithContext(ctx)

			bw := &bufferedWriter{ResponseWriter: w}
			herr := handler(ctx, bw, r)

			switch session.Status(ctx) {
			case scs.Modified:
				token, expiry, err := session.Commit(ctx)
				if err != nil {
					return fmt.Errorf("committing session: %w", err)
				}
				session.WriteSessionCookie(ctx, w, token, expiry)
			case scs.Destroyed:
				session.WriteSessionCookie(ctx, w, "", time.Time{})
			}

			if bw.code != 0 {
				w.WriteHeader(bw.code)
			}
			if _, err := w.Write(bw.buf.Bytes()); err != nil {
				return fmt.Errorf("writing buffered response: %w", err)
			}
			return herr
		}
		return h
	}
	return m
}

// Identify puts the claims of a signed in caller in the context. Anonymous
// callers pass through untouched.
func Identify(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if c, ok := claims.Load(ctx, session); ok {
				ctx = claims.Set(ctx, c)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			c, ok := claims.Load(ctx, session)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			return handler(claims.Set(ctx, c), w, r)
		}
		return h
	}
	return m
}

func Admin(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			c, ok := claims.Load(ctx, session)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if c.Role != claims.RoleAdmin {
				return weberr.Forbidden(fmt.Errorf("user[%s] is not an admin", c.UserID))
			}
			return handler(claims.Set(ctx, c), w, r)
		}
		return h
	}
	return m
}
