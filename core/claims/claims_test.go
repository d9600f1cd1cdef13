package claims

import (
	"context"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAccess(t *testing.T) {
	user := Set(context.Background(), Claims{UserID: "u1", Role: RoleUser})
	admin := Set(context.Background(), Claims{UserID: "a1", Role: RoleAdmin})

	assert.True(t, CanAccess(user, "u1"))
	assert.False(t, CanAccess(user, "u2"))
	assert.True(t, CanAccess(admin, "u2"))
	assert.False(t, CanAccess(context.Background(), "u1"))
}

func TestLoginLoad(t *testing.T) {
	session := scs.New()
	ctx, err := session.Load(context.Background(), "")
	require.NoError(t, err)

	_, ok := Load(ctx, session)
	assert.False(t, ok)

	require.NoError(t, Login(ctx, session, Claims{UserID: "u1", Role: RoleAdmin}))

	c, ok := Load(ctx, session)
	require.True(t, ok)
	assert.Equal(t, Claims{UserID: "u1", Role: RoleAdmin}, c)
}
