package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-monitor/internal/auth"
)

type testKeys struct {
	private   *rsa.PrivateKey
	publicPEM string
}

func generateKeys(t *testing.T) testKeys {
	t.Helper()
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	require.NoError(t, err)

	return testKeys{
		private:   private,
		publicPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	keys := generateKeys(t)
	otherKeys := generateKeys(t)

	authenticator, err := auth.NewAuthenticator(auth.Config{
		JWTPublicKey: keys.publicPEM,
		APIKeys:      []string{"key-1", "", "key-2"},
	})
	require.NoError(t, err)

	valid := signToken(t, keys.private, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, keys.private, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	notYetValid := signToken(t, keys.private, jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	wrongKey := signToken(t, otherKeys.private, jwt.RegisteredClaims{Subject: "user-1"})
	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name            string
		header          string
		expectSuccess   bool
		expectedType    string
		expectedSubject string
		expectedErr     error
	}{
		{name: "valid jwt", header: "Bearer " + valid, expectSuccess: true, expectedType: auth.TypeJWT, expectedSubject: "user-1"},
		{name: "lowercase scheme", header: "bearer " + valid, expectSuccess: true, expectedType: auth.TypeJWT, expectedSubject: "user-1"},
		{name: "expired jwt", header: "Bearer " + expired},
		{name: "jwt not yet valid", header: "Bearer " + notYetValid},
		{name: "jwt signed by another key", header: "Bearer " + wrongKey},
		{name: "hmac jwt", header: "Bearer " + hmacToken},
		{name: "placeholder allow token", header: "Bearer allow"},
		{name: "valid api key", header: "ApiKey key-2", expectSuccess: true, expectedType: auth.TypeAPIKey},
		{name: "invalid api key", header: "ApiKey nope", expectedErr: auth.ErrInvalidAPIKey},
		{name: "empty header", header: "", expectedErr: auth.ErrMissingHeader},
		{name: "no credentials", header: "Bearer", expectedErr: auth.ErrInvalidHeader},
		{name: "unsupported scheme", header: "Basic dXNlcjpwYXNz", expectedErr: auth.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := authenticator.Authenticate(tt.header)
			assert.Equal(t, tt.expectSuccess, result.Success)
			if tt.expectSuccess {
				assert.NoError(t, result.Error)
				assert.Equal(t, tt.expectedType, result.AuthType)
				assert.Equal(t, tt.expectedSubject, result.Subject)
				return
			}
			require.Error(t, result.Error)
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(result.Error, tt.expectedErr), result.Error.Error())
			}
		})
	}
}

func TestAuthenticate_NothingConfigured(t *testing.T) {
	authenticator, err := auth.NewAuthenticator(auth.Config{})
	require.NoError(t, err)

	result := authenticator.Authenticate("Bearer token")
	assert.True(t, errors.Is(result.Error, auth.ErrJWTNotConfigured))

	result = authenticator.Authenticate("ApiKey key")
	assert.True(t, errors.Is(result.Error, auth.ErrAPIKeyNotConfigured))
}

func TestNewAuthenticator_InvalidKey(t *testing.T) {
	_, err := auth.NewAuthenticator(auth.Config{JWTPublicKey: "not a pem"})
	assert.Error(t, err)
}

func TestNewAuthenticator_PKCS1Key(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&private.PublicKey)})

	authenticator, err := auth.NewAuthenticator(auth.Config{JWTPublicKey: string(publicPEM)})
	require.NoError(t, err)

	token := signToken(t, private, jwt.RegisteredClaims{Subject: "pkcs1"})
	result := authenticator.Authenticate("Bearer " + token)
	assert.True(t, result.Success)
	assert.Equal(t, "pkcs1", result.Subject)
}
