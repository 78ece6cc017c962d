package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 2)

	token, err := m.GenerateToken("cust-7", "c@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cust-7", claims.CustomerID)
	assert.Equal(t, "c@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("one", 1).GenerateToken("cust-1", "")
	require.NoError(t, err)

	_, err = NewJWTManager("two", 1).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_SubjectFallback(t *testing.T) {
	m := NewJWTManager("secret", 1)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "cust-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := m.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "cust-sub", claims.CustomerID)
}

func TestJWTManager_RejectsExpiredAndAnonymous(t *testing.T) {
	m := NewJWTManager("secret", 1)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		CustomerID:       "cust-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ValidateToken(signed)
	assert.Error(t, err)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{})
	signed, err = anonymous.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ValidateToken(signed)
	assert.EqualError(t, err, "token has no customer")
}
