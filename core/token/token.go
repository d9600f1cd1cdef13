package token

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/random"
)

const (
	ScopeActivation = "activation"
	ScopeRecovery   = "recovery"
)

const tokenLength = 26

// Token is a single use secret mailed to a user. Only its hash is stored.
type Token struct {
	Hash   []byte    `db:"hash"`
	UserID string    `db:"user_id"`
	Expiry time.Time `db:"expiry"`
	Scope  string    `db:"scope"`
}

type TokenNew struct {
	Email string `json:"email" validate:"required,email"`
	Scope string `json:"scope" validate:"required,oneof=activation recovery"`
}

type TokenActivation struct {
	Token string `json:"token" validate:"required"`
}

type TokenRecovery struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// Mailer delivers token messages.
type Mailer interface {
	SendActivationToken(ctx context.Context, to string, token string) error
	SendRecoveryToken(ctx context.Context, to string, token string) error
}

// Generate returns the plaintext to mail and the token to store.
func Generate(userID string, ttl time.Duration, scope string) (string, Token, error) {
	text, err := random.StringSecure(tokenLength)
	if err != nil {
		return "", Token{}, fmt.Errorf("generating token: %w", err)
	}

	tkn := Token{
		Hash:   Hash(text),
		UserID: userID,
		Expiry: time.Now().UTC().Add(ttl),
		Scope:  scope,
	}
	return text, tkn, nil
}

func Hash(text string) []byte {
	h := sha256.Sum256([]byte(text))
	return h[:]
}
