package token

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, tkn Token) error {
	q := `
	INSERT INTO tokens
		(hash, user_id, expiry, scope)
	VALUES
		(:hash, :user_id, :expiry, :scope)`

	if err := database.NamedExecContext(ctx, db, q, tkn); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// FetchUserID resolves a plaintext token to the id of its user. Expired
// tokens are reported as database.ErrDBNotFound.
func FetchUserID(ctx context.Context, db sqlx.ExtContext, scope, text string) (string, error) {
	q := `
	SELECT user_id
	FROM tokens
	WHERE hash = $1 AND scope = $2 AND expiry > $3`

	var id string
	if err := database.GetContext(ctx, db, &id, q, Hash(text), scope, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("selecting %s token: %w", scope, err)
	}
	return id, nil
}

func DeleteAll(ctx context.Context, db sqlx.ExtContext, scope, userID string) error {
	q := `DELETE FROM tokens WHERE scope = $1 AND user_id = $2`
	if _, err := database.ExecContext(ctx, db, q, scope, userID); err != nil {
		return fmt.Errorf("deleting %s tokens of user[%s]: %w", scope, userID, err)
	}
	return nil
}
