package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/core/claims"
	"github.com/irsalhamdi/honey-shop/core/user"
	"github.com/irsalhamdi/honey-shop/database"
	"github.com/irsalhamdi/honey-shop/random"
	"github.com/irsalhamdi/honey-shop/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

const (
	stateKey    = "oauthState"
	stateLength = 32
)

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

// Provider is an OpenID Connect identity provider users can sign in with.
type Provider struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// MakeProviders discovers every configured provider. Providers without a
// client id are left out.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))
	for _, c := range cfgs {
		if c.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, c.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s: %w", c.Name, err)
		}

		provs[c.Name] = Provider{
			oauth: oauth2.Config{
				ClientID:     c.Client,
				ClientSecret: c.Secret,
				RedirectURL:  c.RedirectURL,
				Endpoint:     p.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: c.Client}),
		}
	}
	return provs, nil
}

func provider(r *http.Request, provs map[string]Provider) (Provider, error) {
	name := web.Param(r, "provider")
	p, ok := provs[name]
	if !ok {
		return Provider{}, weberr.NotFound(fmt.Errorf("unknown oauth provider %q", name))
	}
	return p, nil
}

func HandleOauthLogin(session *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := provider(r, provs)
		if err != nil {
			return err
		}

		state, err := random.StringSecure(stateLength)
		if err != nil {
			return err
		}
		session.Put(ctx, stateKey, state)

		http.Redirect(w, r, p.oauth.AuthCodeURL(state), http.StatusFound)
		return nil
	}
}

type idClaims struct {
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
}

// HandleOauthCallback finishes a provider sign in. Unknown verified emails
// get a new active account.
func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := provider(r, provs)
		if err != nil {
			return err
		}

		q := r.URL.Query()
		state := session.PopString(ctx, stateKey)
		if state == "" || q.Get("state") != state {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := p.oauth.Exchange(ctx, q.Get("code"))
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("exchanging oauth code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.NotAuthorized(errors.New("oauth response has no id token"))
		}

		idt, err := p.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id token: %w", err))
		}

		var ic idClaims
		if err := idt.Claims(&ic); err != nil {
			return fmt.Errorf("reading id token claims: %w", err)
		}
		if !ic.Verified || ic.Email == "" {
			return weberr.Forbidden(errors.New("provider email is not verified"))
		}

		u, err := oauthUser(ctx, db, ic)
		if err != nil {
			return err
		}

		if err := login(ctx, db, session, u); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
		return nil
	}
}

// oauthUser finds or creates the account of a provider verified email.
// The provider vouches for the address, so the account is activated.
func oauthUser(ctx context.Context, db *sqlx.DB, ic idClaims) (user.User, error) {
	email := strings.ToLower(ic.Email)
	now := time.Now().UTC()

	u, err := user.FetchByEmail(ctx, db, email)
	switch {
	case err == nil:
		if u.Active {
			return u, nil
		}
		u.Active = true
		u.UpdatedAt = now
		return u, user.Update(ctx, db, u)

	case !errors.Is(err, database.ErrDBNotFound):
		return user.User{}, err
	}

	pass, err := random.StringSecure(stateLength)
	if err != nil {
		return user.User{}, err
	}
	hash, err := user.HashPassword(pass)
	if err != nil {
		return user.User{}, err
	}

	name := ic.Name
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	u = user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         claims.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	return u, user.Create(ctx, db, u)
}
