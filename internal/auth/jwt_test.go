package auth

import (
	"testing"
	"time"

	"nexo/config"
	"nexo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "nexo"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, 42, domain.RolePartner)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.SubjectID)
	assert.Equal(t, domain.RolePartner, claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := GenerateAccessToken(&config.JWTConfig{AccessSecret: "other", AccessExpiry: time.Hour}, 1, domain.RoleAdmin)
		require.NoError(t, err)
		_, err = ParseAccessToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := GenerateAccessToken(&config.JWTConfig{AccessSecret: "secret", AccessExpiry: -time.Minute}, 1, domain.RoleAdmin)
		require.NoError(t, err)
		_, err = ParseAccessToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseAccessToken(cfg, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
