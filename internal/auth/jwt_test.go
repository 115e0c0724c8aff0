package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims *Claims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(expiry time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		UserID: "user-1",
		Email:  "ram@example.com",
		Role:   "shopkeeper",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    "identity-service",
		},
	}
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	tokenStr := signToken(t, testSecret, validClaims(time.Hour), jwt.SigningMethodHS256)

	claims, err := v.ValidateAccessToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ram@example.com", claims.Email)
	assert.Equal(t, "shopkeeper", claims.Role)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	tokenStr := signToken(t, testSecret, validClaims(-time.Minute), jwt.SigningMethodHS256)

	_, err := v.ValidateAccessToken(tokenStr)
	assert.Error(t, err)
}

func TestVerifier_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	tokenStr := signToken(t, "other-secret", validClaims(time.Hour), jwt.SigningMethodHS256)

	_, err := v.ValidateAccessToken(tokenStr)
	assert.Error(t, err)
}

func TestVerifier_MalformedToken(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestVerifier_RejectsNonHMAC(t *testing.T) {
	v := NewVerifier(testSecret)

	// Token signed with "none" must be rejected by the method check.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(time.Hour))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.ValidateAccessToken(signed)
	assert.Error(t, err)
}
