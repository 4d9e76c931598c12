package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured JWT claims with role based permission checking
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	Kind() TokenKind
	HasRole(role string) bool
	HasRights(rights ...string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete implementation of AuthClaims
type TokenClaims struct {
	jwt.RegisteredClaims
	UserRole  string         `json:"role,omitempty"`
	TokenType TokenKind      `json:"type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	return c.Subject()
}

// Role returns the global role
func (c *TokenClaims) Role() string {
	return c.UserRole
}

// Kind returns the token type the claims were minted for
func (c *TokenClaims) Kind() TokenKind {
	if c.TokenType == "" {
		return TokenKindAccess
	}
	return c.TokenType
}

// HasRole checks if the user has a specific role
func (c *TokenClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// HasRights checks if the user's role grants every given right
func (c *TokenClaims) HasRights(rights ...string) bool {
	return RoleHasRights(c.UserRole, rights...)
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *TokenClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
