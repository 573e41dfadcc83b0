// Package testauth issues signed bearer tokens for tests. It must never be
// imported by server code.
package testauth

import (
	"net/http"
	"testing"
	"time"

	"github.com/eventify-org/server/internal/auth"
)

const (
	Secret = "testauth-secret-0123456789abcdef-0123"
	Issuer = "eventify-test"
)

// TokenIssuer signs tokens with a fixed test secret.
type TokenIssuer struct {
	tokens *auth.JWTManager
}

func New() *TokenIssuer {
	return NewWithSecret(Secret)
}

// NewWithSecret is used to mint tokens the server under test must reject.
func NewWithSecret(secret string) *TokenIssuer {
	return &TokenIssuer{tokens: auth.NewJWTManager(secret, time.Hour, Issuer)}
}

// Manager returns the JWT manager the server under test should validate with.
func (i *TokenIssuer) Manager() *auth.JWTManager {
	return i.tokens
}

// Bearer returns an Authorization header value for the user.
func (i *TokenIssuer) Bearer(tb testing.TB, userID string, role auth.Role) string {
	tb.Helper()
	token, err := i.tokens.Generate(userID, role)
	if err != nil {
		tb.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func (i *TokenIssuer) AddAuth(tb testing.TB, req *http.Request, userID string, role auth.Role) {
	tb.Helper()
	req.Header.Set("Authorization", i.Bearer(tb, userID, role))
}
