package auth

import (
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication types
const (
	TypeJWT    = "jwt"
	TypeAPIKey = "apikey"
)

var (
	ErrMissingHeader       = errors.New("missing Authorization header")
	ErrInvalidHeader       = errors.New("invalid Authorization header format")
	ErrUnsupportedType     = errors.New("unsupported authorization type")
	ErrJWTNotConfigured    = errors.New("JWT public key not configured")
	ErrAPIKeyNotConfigured = errors.New("no API keys configured")
	ErrInvalidAPIKey       = errors.New("invalid API key")
)

// Config holds authentication configuration
type Config struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// Result holds the result of authentication
type Result struct {
	Success  bool
	AuthType string // "jwt" or "apikey"
	Claims   *jwt.RegisteredClaims
	Subject  string
	Error    error
}

// Authenticator verifies Authorization header values.
// It is shared by the HTTP middleware and the API Gateway authorizer.
type Authenticator struct {
	publicKey *rsa.PublicKey
	apiKeys   [][]byte
	parser    *jwt.Parser
}

// NewAuthenticator parses the configured key material once
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	a := &Authenticator{
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"})),
	}

	if cfg.JWTPublicKey != "" {
		publicKey, err := parseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		a.publicKey = publicKey
	}

	for _, key := range cfg.APIKeys {
		if key != "" {
			a.apiKeys = append(a.apiKeys, []byte(key))
		}
	}

	return a, nil
}

// Authenticate validates an Authorization header value of the form
// "Bearer <jwt>" or "ApiKey <key>"
func (a *Authenticator) Authenticate(authHeader string) Result {
	result := Result{
		Success: false,
	}

	if authHeader == "" {
		result.Error = ErrMissingHeader
		return result
	}

	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		result.Error = ErrInvalidHeader
		return result
	}

	authType := strings.ToLower(parts[0])
	credentials := strings.TrimSpace(parts[1])

	switch authType {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			result.Error = err
			return result
		}
		result.Success = true
		result.AuthType = TypeJWT
		result.Claims = claims
		result.Subject = claims.Subject

	case "apikey":
		if err := a.validateAPIKey(credentials); err != nil {
			result.Error = err
			return result
		}
		result.Success = true
		result.AuthType = TypeAPIKey

	default:
		result.Error = fmt.Errorf("%w: %s", ErrUnsupportedType, authType)
	}

	return result
}

// validateJWT validates a JWT token with RSA signature and returns claims.
// Expiry and not-before are enforced by the parser.
func (a *Authenticator) validateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	if a.publicKey == nil {
		return nil, ErrJWTNotConfigured
	}

	claims := &jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

func (a *Authenticator) validateAPIKey(apiKey string) error {
	if len(a.apiKeys) == 0 {
		return ErrAPIKeyNotConfigured
	}

	candidate := []byte(apiKey)
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare(candidate, key) == 1 {
			return nil
		}
	}

	return ErrInvalidAPIKey
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	// Try parsing as PKIX (most common format)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Try parsing as PKCS1 format
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}
