package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loomworks/pkg/requestcontext"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "loomworks")
	ident := requestcontext.Identity{
		UserID: uuid.NewString(),
		Role:   requestcontext.RoleManager,
	}

	token, err := svc.Generate(ident, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, ident, got)
}

func TestValidateRejections(t *testing.T) {
	svc := NewService("test-signing-key", "loomworks")

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("different-key", "loomworks")
		token, err := other.Generate(requestcontext.Identity{
			UserID: uuid.NewString(),
			Role:   requestcontext.RoleAdmin,
		}, time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.Generate(requestcontext.Identity{
			UserID: uuid.NewString(),
			Role:   requestcontext.RoleAdmin,
		}, -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := svc.Generate(requestcontext.Identity{
			UserID: uuid.NewString(),
			Role:   requestcontext.Role("AUDITOR"),
		}, time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown role")
	})

	t.Run("wrong signing algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: uuid.NewString(),
			Role:   string(requestcontext.RoleAdmin),
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.Error(t, err)
	})
}
