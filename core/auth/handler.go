package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/cart"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/token"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

var errBadCredentials = errors.New("invalid email or password")

type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup holds what sign up needs besides the database.
type Signup struct {
	Mailer             token.Mailer
	TokenTTL           time.Duration
	ActivationRequired bool
}

// login starts an authenticated session for u and hands it the cart the
// visitor filled before signing in.
func login(ctx context.Context, db *sqlx.DB, session *scs.SessionManager, u user.User) error {
	if err := cart.Attach(ctx, db, cart.SessionCartID(ctx, session), u.ID); err != nil {
		return fmt.Errorf("attaching session cart: %w", err)
	}

	if err := claims.Login(ctx, session, claims.Claims{UserID: u.ID, Role: u.Role}); err != nil {
		return fmt.Errorf("renewing session: %w", err)
	}
	return nil
}

// HandleSignup registers a user. When accounts need activation the token
// is mailed right away and the account is removed again if that fails, so
// the email can be used to sign up once more.
func HandleSignup(db *sqlx.DB, session *scs.SessionManager, s Signup) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var us user.UserSignup
		if err := web.Decode(w, r, &us); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(us); err != nil {
			return validate.Invalid(err)
		}

		hash, err := user.HashPassword(us.Password)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		u := user.User{
			ID:           validate.GenerateID(),
			Name:         us.Name,
			Email:        strings.ToLower(us.Email),
			PasswordHash: hash,
			Role:         claims.RoleUser,
			Active:       !s.ActivationRequired,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		}

		err = user.Create(ctx, db, u)
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return validate.Invalid(validate.FieldErrors{"email": "email is already in use"})
		}
		if err != nil {
			return err
		}

		if !s.ActivationRequired {
			if err := login(ctx, db, session, u); err != nil {
				return err
			}

			res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Account created successfully"), Data: u}
			return web.Respond(ctx, w, res, http.StatusCreated)
		}

		if err := sendActivation(ctx, db, s, u); err != nil {
			if derr := user.Delete(ctx, db, u.ID); derr != nil {
				return fmt.Errorf("removing user[%s] (%v) after: %w", u.ID, derr, err)
			}
			return weberr.NewError(err, "Could not send the activation email, try again later", http.StatusServiceUnavailable)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Account created, check your email to activate it"), Data: u}
		return web.Respond(ctx, w, res, http.StatusCreated)
	}
}

func sendActivation(ctx context.Context, db sqlx.ExtContext, s Signup, u user.User) error {
	text, tkn, err := token.Generate(u.ID, s.TokenTTL, token.ScopeActivation)
	if err != nil {
		return err
	}

	if err := token.Create(ctx, db, tkn); err != nil {
		return err
	}

	return s.Mailer.SendActivationToken(ctx, u.Email, text)
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ul UserLogin
		if err := web.Decode(w, r, &ul); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ul); err != nil {
			return validate.Invalid(err)
		}

		u, err := user.FetchByEmail(ctx, db, strings.ToLower(ul.Email))
		if errors.Is(err, database.ErrDBNotFound) {
			return weberr.NewError(errBadCredentials, "Invalid email or password", http.StatusUnauthorized)
		}
		if err != nil {
			return err
		}

		if err := u.CheckPassword(ul.Password); err != nil {
			return weberr.NewError(err, "Invalid email or password", http.StatusUnauthorized)
		}

		if !u.Active {
			err := fmt.Errorf("user[%s] is not activated", u.ID)
			return weberr.NewError(err, "Account is not activated", http.StatusForbidden)
		}

		if err := login(ctx, db, session, u); err != nil {
			return err
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Signed in successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Signed out successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
