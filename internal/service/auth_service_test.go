package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctrack/internal/config"
	"doctrack/internal/domain"
	"doctrack/internal/service"
)

func TestAuthService_IssueAndValidate(t *testing.T) {
	svc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Issuer: "doctrack"})

	token, err := svc.IssueToken("ops@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "doctrack", claims.Issuer)
}

func TestAuthService_Expired(t *testing.T) {
	svc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Issuer: "doctrack"})

	token, err := svc.IssueToken("ops", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_WrongSecret(t *testing.T) {
	issuer := service.NewAuthService(config.JWTConfig{Secret: "one", Issuer: "doctrack"})
	verifier := service.NewAuthService(config.JWTConfig{Secret: "two", Issuer: "doctrack"})

	token, err := issuer.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_WrongIssuer(t *testing.T) {
	issuer := service.NewAuthService(config.JWTConfig{Secret: "s", Issuer: "someone-else"})
	verifier := service.NewAuthService(config.JWTConfig{Secret: "s", Issuer: "doctrack"})

	token, err := issuer.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_RejectsNoneAlgorithm(t *testing.T) {
	svc := service.NewAuthService(config.JWTConfig{Secret: "s", Issuer: "doctrack"})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "ops",
		Issuer:    "doctrack",
		Audience:  jwt.ClaimStrings{"doctrack-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
