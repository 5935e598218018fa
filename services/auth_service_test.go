package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/ws"
)

const testSecret = "test-secret"

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, env.feed, testSecret, time.Hour)
	ctx := context.Background()

	first, err := auth.Register(ctx, &models.CreateUserRequest{Username: "root", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.Empty(t, first.User.PasswordHash)

	second, err := auth.Register(ctx, &models.CreateUserRequest{Username: "reader", Email: "r@example.com", Password: "password2"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.User.Role)

	events := env.hub.withOp(ws.OpNewUser)
	require.Len(t, events, 2)
	assert.Equal(t, ws.AdminRoom, events[0].Room)
	assert.Equal(t, "reader", events[1].Event.Data.(models.User).Username)

	_, err = auth.Register(ctx, &models.CreateUserRequest{Username: "reader", Password: "password3"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = auth.Register(ctx, &models.CreateUserRequest{Username: "x", Password: "password3"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestLoginAndValidate(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, env.feed, testSecret, time.Hour)
	ctx := context.Background()

	_, err := auth.Register(ctx, &models.CreateUserRequest{Username: "reader", Password: "password1"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "reader", Password: "wrong-pass"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "password1"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	tokens, err := auth.Login(ctx, &models.LoginRequest{Username: "reader", Password: "password1"})
	require.NoError(t, err)

	claims, err := auth.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, claims.UserID)
	assert.Equal(t, "reader", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	user, err := auth.GetUser(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, nil, testSecret, time.Hour)

	sign := func(secret string, method jwt.SigningMethod, exp time.Time) string {
		claims := &models.TokenClaims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(exp),
				Issuer:    tokenIssuer,
			},
		}
		key := any([]byte(secret))
		if method == jwt.SigningMethodNone {
			key = jwt.UnsafeAllowNoneSignatureType
		}
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign("other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		"expired":      sign(testSecret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute)),
		"alg none":     sign(testSecret, jwt.SigningMethodNone, time.Now().Add(time.Hour)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateAccessToken(token)
			assert.ErrorIs(t, err, pkg.ErrUnauthorized)
		})
	}

	_, err := auth.ValidateAccessToken(sign(testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	assert.NoError(t, err)
}
