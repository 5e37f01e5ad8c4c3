package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochopp/internal/domain"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("segredo", time.Hour)

	signed, err := svc.GenerateToken("ana", domain.RoleOperator)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, domain.RoleOperator, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestValidate_WrongSecret(t *testing.T) {
	signed, err := NewService("segredo", time.Hour).GenerateToken("ana", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = NewService("outro", time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	svc := NewService("segredo", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, err := svc.GenerateToken("ana", domain.RoleViewer)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidate_ForeignIssuer(t *testing.T) {
	claims := CustomClaims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ana",
			Issuer:    "outro-sistema",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("segredo"))
	require.NoError(t, err)

	_, err = NewService("segredo", time.Hour).ValidateToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestGenerate_RequiresOperator(t *testing.T) {
	_, err := NewService("segredo", time.Hour).GenerateToken("", domain.RoleOperator)
	assert.Error(t, err)
}
