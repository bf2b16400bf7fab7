package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
)

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("s3cret"))
	user := appctx.UserContext{UserID: id.New(), TenantID: id.New(), Name: "Joana", Roles: []string{"mechanic"}}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, user.TenantID, got.TenantID)
	assert.Equal(t, "Joana", got.Name)
	assert.Equal(t, []string{"mechanic"}, got.Roles)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("s3cret"))
	user := appctx.UserContext{UserID: id.New(), TenantID: id.New()}

	otherKey, _, err := NewJWTService(DefaultJWTConfig("other")).GenerateAccessToken(user)
	require.NoError(t, err)

	expiredCfg := DefaultJWTConfig("s3cret")
	expiredCfg.AccessTokenTTL = -time.Minute
	expired, _, err := NewJWTService(expiredCfg).GenerateAccessToken(user)
	require.NoError(t, err)

	wrongIssuerCfg := DefaultJWTConfig("s3cret")
	wrongIssuerCfg.Issuer = "elsewhere"
	wrongIssuer, _, err := NewJWTService(wrongIssuerCfg).GenerateAccessToken(user)
	require.NoError(t, err)

	badTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "oficina",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		UserID:   id.New().String(),
		TenantID: "not-a-uuid",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := map[string]string{
		"wrong key":    otherKey,
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"bad tenant":   badTenant,
		"garbage":      "a.b.c",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}
