package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defAccessTokenExpiration  = 30 // minutes
	defRefreshTokenExpiration = 30 // days
	defResetTokenExpiration   = 10 // minutes
	defVerifyTokenExpiration  = 5  // minutes
)

// SessionManager implements the Sessions interface on top of the token
// service and the repositories. Access tokens are stateless, everything
// else is persisted and redeemable exactly once.
type SessionManager struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger

	accessExpiration  int // minutes
	refreshExpiration int // days
	resetExpiration   int // minutes
	verifyExpiration  int // minutes
}

var _ Sessions = (*SessionManager)(nil)

// NewSessionManager returns a SessionManager wired to the given config
func NewSessionManager(repo RepositoryManager, opts Config) *SessionManager {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &SessionManager{
		repo:              repo,
		tokenService:      tokenService,
		logger:            defLogger{},
		accessExpiration:  intOrDefault(opts.GetAccessTokenExpiration(), defAccessTokenExpiration),
		refreshExpiration: intOrDefault(opts.GetRefreshTokenExpiration(), defRefreshTokenExpiration),
		resetExpiration:   intOrDefault(opts.GetResetTokenExpiration(), defResetTokenExpiration),
		verifyExpiration:  intOrDefault(opts.GetVerifyTokenExpiration(), defVerifyTokenExpiration),
	}
}

func (s *SessionManager) WithLogger(logger Logger) *SessionManager {
	s.logger = logger
	return s
}

// WithTokenService swaps the token codec, mostly useful in tests
func (s *SessionManager) WithTokenService(ts TokenService) *SessionManager {
	s.tokenService = ts
	return s
}

// TokenService returns the codec used to mint and validate JWTs
func (s *SessionManager) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues a fresh token pair. Unknown emails
// and bad passwords fail identically.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*User, *AuthTokens, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, nil, ErrIncorrectCredentials
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "login failed")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Warn("Login attempt with bad password", "user_id", user.ID)
		return nil, nil, ErrIncorrectCredentials
	}

	tokens, err := s.IssueAuthTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

// IssueAuthTokens mints an access/refresh pair. The refresh token is
// persisted so it can be rotated and revoked; the access token is not.
func (s *SessionManager) IssueAuthTokens(ctx context.Context, user *User) (*AuthTokens, error) {
	now := time.Now()

	accessExpires := now.Add(time.Duration(s.accessExpiration) * time.Minute)
	access, err := s.tokenService.Sign(user.ID.String(), string(user.Role), accessExpires, TokenKindAccess)
	if err != nil {
		s.logger.Error("IssueAuthTokens access sign error", "error", err)
		return nil, err
	}

	refreshExpires := now.Add(time.Duration(s.refreshExpiration) * 24 * time.Hour)
	refresh, err := s.tokenService.Sign(user.ID.String(), string(user.Role), refreshExpires, TokenKindRefresh)
	if err != nil {
		s.logger.Error("IssueAuthTokens refresh sign error", "error", err)
		return nil, err
	}

	if _, err := s.repo.Tokens().Save(ctx, &Token{
		Token:     refresh,
		UserID:    user.ID,
		Kind:      TokenKindRefresh,
		ExpiresAt: refreshExpires,
	}); err != nil {
		s.logger.Error("IssueAuthTokens refresh save error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return &AuthTokens{
		Access:  TokenInfo{Token: access, Expires: accessExpires},
		Refresh: TokenInfo{Token: refresh, Expires: refreshExpires},
	}, nil
}

// RefreshAuth rotates a refresh token: the presented token is consumed and
// a brand new pair is issued. Every failure collapses to ErrPleaseAuthenticate.
func (s *SessionManager) RefreshAuth(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	record, err := s.verifyStoredToken(ctx, refreshToken, TokenKindRefresh, uuid.Nil)
	if err != nil {
		s.logger.Warn("RefreshAuth token verification failed", "error", err)
		return nil, ErrPleaseAuthenticate
	}

	user, err := s.repo.Users().GetByID(ctx, record.UserID.String())
	if err != nil {
		s.logger.Warn("RefreshAuth user lookup failed", "error", err)
		return nil, ErrPleaseAuthenticate
	}

	if err := s.repo.Tokens().Consume(ctx, record.ID); err != nil {
		s.logger.Warn("RefreshAuth token consume failed", "error", err)
		return nil, ErrPleaseAuthenticate
	}

	tokens, err := s.IssueAuthTokens(ctx, user)
	if err != nil {
		s.logger.Error("RefreshAuth reissue failed", "error", err)
		return nil, ErrPleaseAuthenticate
	}

	return tokens, nil
}

// Logout revokes the presented refresh token
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.repo.Tokens().FindActive(ctx, refreshToken, TokenKindRefresh, uuid.Nil)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrTokenNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "logout failed")
	}

	return s.repo.Tokens().Consume(ctx, record.ID)
}

// GenerateResetPasswordToken mints and persists a short-lived reset token.
// Note this reports unknown emails, making account existence observable.
func (s *SessionManager) GenerateResetPasswordToken(ctx context.Context, email string) (string, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", errors.New("No users found with this email", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("USER_NOT_FOUND")
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "reset token generation failed")
	}

	return s.generateStoredToken(ctx, user, TokenKindResetPassword, s.resetExpiration)
}

// ResetPassword redeems a reset token, replaces the password hash, and
// purges any sibling reset tokens so none can be replayed.
func (s *SessionManager) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.verifyStoredToken(ctx, token, TokenKindResetPassword, uuid.Nil)
	if err != nil {
		s.logger.Warn("ResetPassword token verification failed", "error", err)
		return ErrPasswordResetFailed
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		s.logger.Error("ResetPassword hash error", "error", err)
		return ErrPasswordResetFailed
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().ResetPasswordTx(ctx, tx, record.UserID, hash); err != nil {
			return err
		}
		return s.repo.Tokens().PurgeByUserAndKindTx(ctx, tx, record.UserID, TokenKindResetPassword)
	})

	if err != nil {
		s.logger.Error("ResetPassword transaction failed", "error", err)
		return ErrPasswordResetFailed
	}

	return nil
}

// GenerateVerifyEmailToken mints and persists a short-lived verification token
func (s *SessionManager) GenerateVerifyEmailToken(ctx context.Context, user *User) (string, error) {
	return s.generateStoredToken(ctx, user, TokenKindVerifyEmail, s.verifyExpiration)
}

// VerifyEmail redeems a verification token and flags the account verified
func (s *SessionManager) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.verifyStoredToken(ctx, token, TokenKindVerifyEmail, uuid.Nil)
	if err != nil {
		s.logger.Warn("VerifyEmail token verification failed", "error", err)
		return ErrEmailVerifyFailed
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().MarkEmailVerifiedTx(ctx, tx, record.UserID); err != nil {
			return err
		}
		return s.repo.Tokens().PurgeByUserAndKindTx(ctx, tx, record.UserID, TokenKindVerifyEmail)
	})

	if err != nil {
		s.logger.Error("VerifyEmail transaction failed", "error", err)
		return ErrEmailVerifyFailed
	}

	return nil
}

func (s *SessionManager) generateStoredToken(ctx context.Context, user *User, kind TokenKind, ttlMinutes int) (string, error) {
	expires := time.Now().Add(time.Duration(ttlMinutes) * time.Minute)

	signed, err := s.tokenService.Sign(user.ID.String(), string(user.Role), expires, kind)
	if err != nil {
		s.logger.Error("generateStoredToken sign error", "kind", kind, "error", err)
		return "", err
	}

	if _, err := s.repo.Tokens().Save(ctx, &Token{
		Token:     signed,
		UserID:    user.ID,
		Kind:      kind,
		ExpiresAt: expires,
	}); err != nil {
		s.logger.Error("generateStoredToken save error", "kind", kind, "error", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to persist token")
	}

	return signed, nil
}

// verifyStoredToken checks the signature first, then requires a live record
// in the store. A token that passes the codec but has no stored row was
// consumed or revoked and must not be honored.
func (s *SessionManager) verifyStoredToken(ctx context.Context, token string, kind TokenKind, userID uuid.UUID) (*Token, error) {
	claims, err := s.tokenService.ValidateKind(token, kind)
	if err != nil {
		return nil, err
	}

	owner := userID
	if owner == uuid.Nil {
		if parsed, err := uuid.Parse(claims.UserID()); err == nil {
			owner = parsed
		}
	}

	record, err := s.repo.Tokens().FindActive(ctx, token, kind, owner)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return record, nil
}

func intOrDefault(val, def int) int {
	if val <= 0 {
		return def
	}
	return val
}
