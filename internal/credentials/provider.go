package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/trolley/internal/apperr"
)

// Provider hands out the bearer token for each backend call. A missing,
// blank or expired token is reported as apperr.CodeUnauthenticated.
type Provider struct {
	store Store
	key   string
	now   func() time.Time
}

// NewProvider reads AccessTokenKey from store.
func NewProvider(store Store) *Provider {
	return &Provider{store: store, key: AccessTokenKey, now: time.Now}
}

// Token returns the current access token.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p == nil || p.store == nil {
		return "", apperr.New(apperr.CodeUnauthenticated, "no credential store")
	}
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return "", apperr.New(apperr.CodeUnauthenticated, "no access token")
	}
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	token := strings.TrimSpace(raw)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", apperr.New(apperr.CodeUnauthenticated, "no access token")
	}
	if expiry, ok := jwtExpiry(token); ok && !p.now().Before(expiry) {
		return "", apperr.New(apperr.CodeUnauthenticated, "access token expired")
	}
	return token, nil
}

// jwtExpiry reads the exp claim without verifying the signature; the
// backend does the verification. Opaque tokens report ok=false.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
