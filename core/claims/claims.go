// Package claims carries the identity of the caller through the request
// context and persists it in the session between requests.
package claims

import (
	"context"
	"errors"

	"github.com/alexedwards/scs/v2"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var ErrAnonymous = errors.New("claim value missing from context")

type Claims struct {
	UserID string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

// Session keys.
const (
	userIDKey = "userID"
	roleKey   = "role"
)

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrAnonymous
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

// IsUser reports whether the caller is the user with the given id.
func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id
}

// CanAccess reports whether the caller owns the resource or is an admin.
func CanAccess(ctx context.Context, ownerID string) bool {
	return IsAdmin(ctx) || IsUser(ctx, ownerID)
}

// Login renews the session token and stores the claims in the session.
func Login(ctx context.Context, session *scs.SessionManager, c Claims) error {
	if err := session.RenewToken(ctx); err != nil {
		return err
	}

	session.Put(ctx, userIDKey, c.UserID)
	session.Put(ctx, roleKey, c.Role)
	return nil
}

// Load reads the claims stored by Login. ok is false for anonymous sessions.
func Load(ctx context.Context, session *scs.SessionManager) (Claims, bool) {
	id := session.GetString(ctx, userIDKey)
	if id == "" {
		return Claims{}, false
	}
	return Claims{UserID: id, Role: session.GetString(ctx, roleKey)}, true
}
