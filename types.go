package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Sessions holds the auth session operations exposed to transports
type Sessions interface {
	Login(ctx context.Context, email, password string) (*User, *AuthTokens, error)
	IssueAuthTokens(ctx context.Context, user *User) (*AuthTokens, error)
	RefreshAuth(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	GenerateResetPasswordToken(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	GenerateVerifyEmailToken(ctx context.Context, user *User) (string, error)
	VerifyEmail(ctx context.Context, token string) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenExpiration() int  // minutes
	GetRefreshTokenExpiration() int // days
	GetResetTokenExpiration() int   // minutes
	GetVerifyTokenExpiration() int  // minutes
}

// TokenService mints and validates signed JWTs
type TokenService interface {
	Sign(userID, role string, expiresAt time.Time, kind TokenKind) (string, error)
	SignClaims(claims *TokenClaims) (string, error)
	Validate(tokenString string) (*TokenClaims, error)
	ValidateKind(tokenString string, kind TokenKind) (*TokenClaims, error)
}

// Mailer delivers a rendered message to a recipient. Delivery failures are
// never rolled back against already-issued tokens; callers log and move on.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, html string) error
}

// TokenInfo pairs a signed token with its expiry
type TokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// AuthTokens is the access/refresh pair returned by login and refresh
type AuthTokens struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
