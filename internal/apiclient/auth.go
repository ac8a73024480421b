package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator applies authentication to requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// TokenSource yields the current access token, or "" when there is none.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// PublicPaths never carry a credential.
var PublicPaths = []string{"/auth/login", "/auth/register"}

// BearerAuth reads the access token on every request so that a login or
// logout takes effect immediately.
type BearerAuth struct {
	Tokens TokenSource
}

// NewBearerAuth creates a BearerAuth over tokens.
func NewBearerAuth(tokens TokenSource) *BearerAuth {
	return &BearerAuth{Tokens: tokens}
}

func (b *BearerAuth) Apply(req *http.Request) error {
	if isPublic(req.URL.Path) {
		req.Header.Del("Authorization")
		return nil
	}
	token, err := b.Tokens.AccessToken(req.Context())
	if err != nil {
		return fmt.Errorf("reading access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func isPublic(path string) bool {
	for _, p := range PublicPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// StaticToken is a TokenSource with a fixed token, handy for scripts.
type StaticToken string

func (s StaticToken) AccessToken(context.Context) (string, error) {
	return string(s), nil
}
