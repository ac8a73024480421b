// Package tokenstore is durable key-value storage for credentials, where
// every entry carries its own expiry.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

// Token represents a stored token with metadata.
type Token struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpired checks if the token has expired.
func (t *Token) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// TTL is the time left before the token expires, never negative.
func (t *Token) TTL() time.Duration {
	if d := time.Until(t.ExpiresAt); d > 0 {
		return d
	}
	return 0
}

// Store defines the token storage interface.
type Store interface {
	// Set stores a value under key until ttl elapses, replacing any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get retrieves a token by key. Returns ErrTokenNotFound or ErrTokenExpired.
	Get(ctx context.Context, key string) (*Token, error)
	// Delete removes a token by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Cleanup removes all expired tokens.
	Cleanup(ctx context.Context) (int, error)
	// Ping reports whether the backing storage is usable.
	Ping(ctx context.Context) error
}

// DeleteAll removes every key, attempting all of them even if one fails.
func DeleteAll(ctx context.Context, s Store, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
