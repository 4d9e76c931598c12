package auth

import (
	"context"

	"github.com/goliatone/go-auth-server/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// SelfServiceParam is the route parameter checked for self-service access:
// a caller operating on their own user id bypasses the rights requirement.
const SelfServiceParam = "userId"

// ContextEnricherAdapter adapts jwtware.AuthClaims to auth.AuthClaims and stores
// claims in the standard context for downstream usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// AccessTokenValidator wraps a TokenService so the middleware only honors
// access tokens. Refresh and single-use tokens are rejected even though they
// carry valid signatures.
func AccessTokenValidator(ts TokenService) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		claims, err := ts.ValidateKind(raw, TokenKindAccess)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// NewRouteGuard builds the authentication middleware factory used when
// registering routes. Each call to the returned guard produces a middleware
// enforcing the given rights.
func NewRouteGuard(cfg Config, ts TokenService, errorHandler func(router.Context, error) error) RouteGuard {
	base := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		ContextKey:       cfg.GetContextKey(),
		TokenLookup:      cfg.GetTokenLookup(),
		AuthScheme:       cfg.GetAuthScheme(),
		TokenValidator:   AccessTokenValidator(ts),
		SelfServiceParam: SelfServiceParam,
		ContextEnricher:  ContextEnricherAdapter,
		ErrorHandler:     guardErrorHandler(errorHandler),
	}

	return func(rights ...string) router.MiddlewareFunc {
		return jwtware.New(base.WithRights(rights...))
	}
}

// guardErrorHandler collapses middleware failures: every authentication
// problem reads "Please authenticate", only rights failures read Forbidden.
func guardErrorHandler(errorHandler func(router.Context, error) error) router.ErrorHandler {
	return func(c router.Context, err error) error {
		if errors.Is(err, jwtware.ErrAccessDenied) {
			return errorHandler(c, ErrInsufficientRights)
		}

		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryAuthz {
			return errorHandler(c, err)
		}

		return errorHandler(c, ErrNotAuthenticated)
	}
}
