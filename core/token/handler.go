package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/honey-shop/api/background"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/rate"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
)

// HandleToken mails a fresh activation or recovery token. Unknown emails get
// the same answer as known ones.
func HandleToken(db *sqlx.DB, mailer Mailer, ttl time.Duration, bg *background.Background, lim *rate.Limiter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tn TokenNew
		if err := web.Decode(w, r, &tn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tn); err != nil {
			return validate.Invalid(err)
		}
		email := strings.ToLower(tn.Email)

		if !lim.Check(email) {
			err := errors.New("too many requests, try again later")
			return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Check your email for further instructions")}

		u, err := user.FetchByEmail(ctx, db, email)
		if errors.Is(err, database.ErrDBNotFound) {
			return web.Respond(ctx, w, res, http.StatusOK)
		}
		if err != nil {
			return err
		}

		if tn.Scope == ScopeActivation && u.Active {
			return weberr.Conflict(errors.New("account is already activated"))
		}

		text, tkn, err := Generate(u.ID, ttl, tn.Scope)
		if err != nil {
			return err
		}

		if err := Create(ctx, db, tkn); err != nil {
			return err
		}

		// The request context is gone once the response is written.
		mailCtx := i18n.WithLanguage(context.Background(), i18n.Language(ctx))
		bg.Go("send "+tn.Scope+" token", func() error {
			if tn.Scope == ScopeActivation {
				return mailer.SendActivationToken(mailCtx, u.Email, text)
			}
			return mailer.SendRecoveryToken(mailCtx, u.Email, text)
		})

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleActivation marks the account of the token owner as active and logs
// them in.
func HandleActivation(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ta TokenActivation
		if err := web.Decode(w, r, &ta); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ta); err != nil {
			return validate.Invalid(err)
		}

		var u user.User
		err := database.Transaction(db, func(tx sqlx.ExtContext) error {
			id, err := FetchUserID(ctx, tx, ScopeActivation, ta.Token)
			if err != nil {
				return err
			}

			if u, err = user.Fetch(ctx, tx, id); err != nil {
				return err
			}

			u.Active = true
			u.UpdatedAt = time.Now().UTC()
			if err := user.Update(ctx, tx, u); err != nil {
				return err
			}

			return DeleteAll(ctx, tx, ScopeActivation, u.ID)
		})
		if errors.Is(err, database.ErrDBNotFound) {
			return validate.Invalid(validate.FieldErrors{"token": "invalid or expired token"})
		}
		if err != nil {
			return fmt.Errorf("activating account: %w", err)
		}

		if err := claims.Login(ctx, session, claims.Claims{UserID: u.ID, Role: u.Role}); err != nil {
			return fmt.Errorf("renewing session: %w", err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Account activated successfully"), Data: u}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleRecovery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tr TokenRecovery
		if err := web.Decode(w, r, &tr); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tr); err != nil {
			return validate.Invalid(err)
		}

		hash, err := user.HashPassword(tr.Password)
		if err != nil {
			return err
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			id, err := FetchUserID(ctx, tx, ScopeRecovery, tr.Token)
			if err != nil {
				return err
			}

			u, err := user.Fetch(ctx, tx, id)
			if err != nil {
				return err
			}

			u.PasswordHash = hash
			u.Active = true
			u.UpdatedAt = time.Now().UTC()
			if err := user.Update(ctx, tx, u); err != nil {
				return err
			}

			return DeleteAll(ctx, tx, ScopeRecovery, u.ID)
		})
		if errors.Is(err, database.ErrDBNotFound) {
			return validate.Invalid(validate.FieldErrors{"token": "invalid or expired token"})
		}
		if err != nil {
			return fmt.Errorf("recovering account: %w", err)
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "Password updated successfully")}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
