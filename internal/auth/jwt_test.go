package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	secretKey := "test-secret-key-for-testing"
	tokenDuration := 1 * time.Hour
	jwtManager := NewJWTManager(secretKey, tokenDuration)

	t.Run("GenerateToken creates valid token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("ops@example.com", RoleAdmin)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("GenerateToken rejects unknown roles", func(t *testing.T) {
		_, err := jwtManager.GenerateToken("ops@example.com", "root")
		assert.Error(t, err)
	})

	t.Run("ValidateToken validates correct token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("viewer@example.com", RoleViewer)
		require.NoError(t, err)

		claims, err := jwtManager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "viewer@example.com", claims.Operator)
		assert.Equal(t, RoleViewer, claims.Role)
		assert.Equal(t, "viewer@example.com", claims.Subject)
		assert.False(t, claims.CanTrigger())
	})

	t.Run("ValidateToken rejects invalid token", func(t *testing.T) {
		_, err := jwtManager.ValidateToken("invalid.token.here")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ValidateToken rejects expired token", func(t *testing.T) {
		past := NewJWTManager(secretKey, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }

		token, err := past.GenerateToken("ops@example.com", RoleAdmin)
		require.NoError(t, err)

		_, err = jwtManager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("ValidateToken rejects token with wrong signature", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("ops@example.com", RoleAdmin)
		require.NoError(t, err)

		wrongManager := NewJWTManager("wrong-secret-key", tokenDuration)
		_, err = wrongManager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ValidateToken rejects foreign issuer", func(t *testing.T) {
		claims := Claims{
			Operator: "ops@example.com",
			Role:     RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				Issuer:    "gotrs",
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
		require.NoError(t, err)

		_, err = jwtManager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ValidateToken rejects none algorithm", func(t *testing.T) {
		claims := Claims{Operator: "x", Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = jwtManager.ValidateToken(token)
		assert.Error(t, err)
	})
}
