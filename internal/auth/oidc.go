// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/praxis-edu/praxis/internal/config"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/models"
)

// oidcStateTTL bounds how long a login may sit between the redirect to the
// provider and the callback. Expired states force the user to restart.
const oidcStateTTL = 10 * time.Minute

var (
	// ErrInvalidState means the callback carried a state the server never
	// issued, already consumed, or let expire. All three are treated the
	// same so a forged callback learns nothing.
	ErrInvalidState = errors.New("invalid or expired state parameter")

	// ErrTokenExchangeFailed wraps provider-side code exchange failures.
	ErrTokenExchangeFailed = errors.New("authorization code exchange failed")
)

// OIDCProvider implements the relying-party half of an OpenID Connect
// authorization code flow. The provider authenticates the user; Praxis then
// mints its own session token from the ID token claims, so everything
// downstream of login (middleware, stream auth, ownership scoping) is
// identical for OIDC and password sessions.
type OIDCProvider struct {
	relyingParty rp.RelyingParty
	jwt          *JWTManager
	states       *oidcStateStore
}

// NewOIDCProvider builds the relying party from the security configuration,
// performing OIDC discovery against the issuer. Returns (nil, nil) when no
// issuer is configured, which disables the flow.
func NewOIDCProvider(ctx context.Context, cfg *config.SecurityConfig, jwtManager *JWTManager) (*OIDCProvider, error) {
	if cfg.OIDCIssuer == "" {
		return nil, nil
	}

	scopes := cfg.OIDCScopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.OIDCIssuer,
		cfg.OIDCClientID,
		cfg.OIDCClientSecret,
		cfg.OIDCRedirectURL,
		scopes,
		rp.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for issuer %s failed: %w", cfg.OIDCIssuer, err)
	}

	logging.Info().Str("issuer", cfg.OIDCIssuer).Str("client_id", cfg.OIDCClientID).
		Msg("oidc login enabled")

	return &OIDCProvider{
		relyingParty: relyingParty,
		jwt:          jwtManager,
		states:       newOIDCStateStore(),
	}, nil
}

// AuthURL issues a fresh state parameter and returns the provider
// authorization URL to redirect the browser to.
func (p *OIDCProvider) AuthURL() (string, error) {
	state, err := generateOIDCState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	p.states.put(state)
	return rp.AuthURL(state, p.relyingParty), nil
}

// Exchange completes the callback leg: it consumes the state, exchanges the
// authorization code for tokens, and mints a Praxis session token from the
// verified ID token claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code, state string) (*models.LoginResponse, error) {
	if !p.states.consume(state) {
		return nil, ErrInvalidState
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, p.relyingParty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	claims := tokens.IDTokenClaims
	userID := claims.Subject
	if userID == "" {
		return nil, fmt.Errorf("%w: id token carries no subject", ErrTokenExchangeFailed)
	}
	username := oidcUsername(claims)
	role := oidcRole(claims)

	token, expires, err := p.jwt.GenerateToken(userID, username, role)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	logging.Info().Str("user_id", userID).Str("username", username).Str("role", role).
		Msg("oidc login completed")

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  username,
		Role:      role,
		UserID:    userID,
	}, nil
}

// oidcUsername picks a display name from the ID token, preferring the
// provider's preferred_username, then name, then email, then the subject.
func oidcUsername(claims *oidc.IDTokenClaims) string {
	switch {
	case claims.PreferredUsername != "":
		return claims.PreferredUsername
	case claims.Name != "":
		return claims.Name
	case claims.Email != "":
		return claims.Email
	default:
		return claims.Subject
	}
}

// oidcRole maps provider roles onto Praxis roles. A "roles" claim listing
// "admin" grants the admin role; everyone else is a regular user.
func oidcRole(claims *oidc.IDTokenClaims) string {
	raw, ok := claims.Claims["roles"]
	if !ok {
		return "user"
	}
	list, ok := raw.([]any)
	if !ok {
		return "user"
	}
	for _, item := range list {
		if s, ok := item.(string); ok && strings.EqualFold(s, "admin") {
			return "admin"
		}
	}
	return "user"
}

// generateOIDCState returns a URL-safe random state parameter.
func generateOIDCState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// oidcStateStore tracks issued state parameters. States are single use and
// expire after oidcStateTTL; stale entries are pruned opportunistically on
// each insert.
type oidcStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newOIDCStateStore() *oidcStateStore {
	return &oidcStateStore{states: make(map[string]time.Time)}
}

func (s *oidcStateStore) put(state string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, issued := range s.states {
		if now.Sub(issued) > oidcStateTTL {
			delete(s.states, k)
		}
	}
	s.states[state] = now
}

// consume removes the state and reports whether it was live. A state can be
// consumed at most once.
func (s *oidcStateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	issued, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Since(issued) <= oidcStateTTL
}
