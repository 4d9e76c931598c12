package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-server"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestSessionManager(t *testing.T) (*auth.SessionManager, *MockRepositoryManager, *MockUsers, *MockTokens) {
	t.Helper()

	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	tokens := &MockTokens{}

	repo.On("Users").Return(users).Maybe()
	repo.On("Tokens").Return(tokens).Maybe()

	manager := auth.NewSessionManager(repo, newMockConfig()).WithLogger(testLogger{})

	return manager, repo, users, tokens
}

func testUser(t *testing.T, password string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	now := time.Now()
	return &auth.User{
		ID:           uuid.New(),
		Role:         auth.RoleUser,
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: hash,
		CreatedAt:    &now,
	}
}

func TestSessionManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens for valid credentials", func(t *testing.T) {
		manager, _, users, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		tokens.On("Save", mock.Anything, mock.AnythingOfType("*auth.Token")).
			Return(&auth.Token{}, nil).Once()

		got, pair, err := manager.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		assert.Same(t, user, got)
		require.NotNil(t, pair)
		assert.NotEmpty(t, pair.Access.Token)
		assert.NotEmpty(t, pair.Refresh.Token)
		assert.True(t, pair.Refresh.Expires.After(pair.Access.Expires))

		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown email reads like a bad password", func(t *testing.T) {
		manager, _, users, _ := newTestSessionManager(t)

		users.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		_, _, err := manager.Login(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrIncorrectCredentials)
	})

	t.Run("bad password reads like an unknown email", func(t *testing.T) {
		manager, _, users, _ := newTestSessionManager(t)
		user := testUser(t, "password123")

		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

		_, _, err := manager.Login(ctx, user.Email, "wrong-password1")
		assert.ErrorIs(t, err, auth.ErrIncorrectCredentials)
	})
}

func TestSessionManager_IssueAuthTokens(t *testing.T) {
	ctx := context.Background()
	manager, _, _, tokens := newTestSessionManager(t)
	user := testUser(t, "password123")

	var saved *auth.Token
	tokens.On("Save", mock.Anything, mock.AnythingOfType("*auth.Token")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*auth.Token)
		}).
		Return(&auth.Token{}, nil).Once()

	pair, err := manager.IssueAuthTokens(ctx, user)
	require.NoError(t, err)

	// only the refresh token is persisted
	require.NotNil(t, saved)
	assert.Equal(t, auth.TokenKindRefresh, saved.Kind)
	assert.Equal(t, user.ID, saved.UserID)
	assert.Equal(t, pair.Refresh.Token, saved.Token)
	assert.NotEqual(t, pair.Access.Token, saved.Token)

	// both halves decode with the right kind
	access, err := manager.TokenService().ValidateKind(pair.Access.Token, auth.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), access.UserID())

	refresh, err := manager.TokenService().ValidateKind(pair.Refresh.Token, auth.TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, string(user.Role), refresh.Role())
}

func TestSessionManager_RefreshAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the presented token", func(t *testing.T) {
		manager, _, users, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		refreshToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(24*time.Hour), auth.TokenKindRefresh)
		require.NoError(t, err)

		record := &auth.Token{
			ID:        uuid.New(),
			Token:     refreshToken,
			UserID:    user.ID,
			Kind:      auth.TokenKindRefresh,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}

		tokens.On("FindActive", mock.Anything, refreshToken, auth.TokenKindRefresh, user.ID).
			Return(record, nil).Once()
		users.On("GetByID", mock.Anything, user.ID.String(), mock.Anything).
			Return(user, nil).Once()
		tokens.On("Consume", mock.Anything, record.ID).Return(nil).Once()
		tokens.On("Save", mock.Anything, mock.AnythingOfType("*auth.Token")).
			Return(&auth.Token{}, nil).Once()

		pair, err := manager.RefreshAuth(ctx, refreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, refreshToken, pair.Refresh.Token, "rotation must mint a new refresh token")

		tokens.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("a consumed token cannot be redeemed again", func(t *testing.T) {
		manager, _, _, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		refreshToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(24*time.Hour), auth.TokenKindRefresh)
		require.NoError(t, err)

		tokens.On("FindActive", mock.Anything, refreshToken, auth.TokenKindRefresh, user.ID).
			Return(nil, repository.NewRecordNotFound()).Once()

		_, err = manager.RefreshAuth(ctx, refreshToken)
		assert.ErrorIs(t, err, auth.ErrPleaseAuthenticate)
	})

	t.Run("an access token cannot be used to refresh", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)
		user := testUser(t, "password123")

		accessToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(time.Hour), auth.TokenKindAccess)
		require.NoError(t, err)

		_, err = manager.RefreshAuth(ctx, accessToken)
		assert.ErrorIs(t, err, auth.ErrPleaseAuthenticate)
	})

	t.Run("garbage input collapses to the same error", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)

		_, err := manager.RefreshAuth(ctx, "not-a-token")
		assert.ErrorIs(t, err, auth.ErrPleaseAuthenticate)
	})
}

func TestSessionManager_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes the stored refresh token", func(t *testing.T) {
		manager, _, _, tokens := newTestSessionManager(t)

		record := &auth.Token{ID: uuid.New(), Kind: auth.TokenKindRefresh}

		tokens.On("FindActive", mock.Anything, "stored-token", auth.TokenKindRefresh, uuid.Nil).
			Return(record, nil).Once()
		tokens.On("Consume", mock.Anything, record.ID).Return(nil).Once()

		err := manager.Logout(ctx, "stored-token")
		require.NoError(t, err)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown token returns not found", func(t *testing.T) {
		manager, _, _, tokens := newTestSessionManager(t)

		tokens.On("FindActive", mock.Anything, "missing-token", auth.TokenKindRefresh, uuid.Nil).
			Return(nil, repository.NewRecordNotFound()).Once()

		err := manager.Logout(ctx, "missing-token")
		assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	})
}

func TestSessionManager_ResetPasswordFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("generate requires a known email", func(t *testing.T) {
		manager, _, users, _ := newTestSessionManager(t)

		users.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		_, err := manager.GenerateResetPasswordToken(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No users found with this email")
	})

	t.Run("generate persists a reset token", func(t *testing.T) {
		manager, _, users, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		var saved *auth.Token
		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		tokens.On("Save", mock.Anything, mock.AnythingOfType("*auth.Token")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*auth.Token)
			}).
			Return(&auth.Token{}, nil).Once()

		signed, err := manager.GenerateResetPasswordToken(ctx, user.Email)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, auth.TokenKindResetPassword, saved.Kind)
		assert.Equal(t, signed, saved.Token)
	})

	t.Run("reset replaces the hash and purges sibling tokens", func(t *testing.T) {
		manager, repo, users, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		resetToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(10*time.Minute), auth.TokenKindResetPassword)
		require.NoError(t, err)

		record := &auth.Token{ID: uuid.New(), UserID: user.ID, Kind: auth.TokenKindResetPassword}

		tokens.On("FindActive", mock.Anything, resetToken, auth.TokenKindResetPassword, user.ID).
			Return(record, nil).Once()
		users.On("ResetPasswordTx", mock.Anything, mock.Anything, user.ID, mock.AnythingOfType("string")).
			Return(nil).Once()
		tokens.On("PurgeByUserAndKindTx", mock.Anything, mock.Anything, user.ID, auth.TokenKindResetPassword).
			Return(nil).Once()

		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				require.NoError(t, fn(args.Get(0).(context.Context), tx))
			}).Once()

		err = manager.ResetPassword(ctx, resetToken, "newpassword1")
		require.NoError(t, err)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("a bad token collapses to the reset failure", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)

		err := manager.ResetPassword(ctx, "not-a-token", "newpassword1")
		assert.ErrorIs(t, err, auth.ErrPasswordResetFailed)
	})

	t.Run("a refresh token cannot reset a password", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)
		user := testUser(t, "password123")

		refreshToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(24*time.Hour), auth.TokenKindRefresh)
		require.NoError(t, err)

		err = manager.ResetPassword(ctx, refreshToken, "newpassword1")
		assert.ErrorIs(t, err, auth.ErrPasswordResetFailed)
	})
}

func TestSessionManager_VerifyEmailFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("generate persists a verification token", func(t *testing.T) {
		manager, _, _, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		var saved *auth.Token
		tokens.On("Save", mock.Anything, mock.AnythingOfType("*auth.Token")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*auth.Token)
			}).
			Return(&auth.Token{}, nil).Once()

		signed, err := manager.GenerateVerifyEmailToken(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, auth.TokenKindVerifyEmail, saved.Kind)
		assert.Equal(t, signed, saved.Token)
	})

	t.Run("verify flags the account and purges sibling tokens", func(t *testing.T) {
		manager, repo, users, tokens := newTestSessionManager(t)
		user := testUser(t, "password123")

		verifyToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(5*time.Minute), auth.TokenKindVerifyEmail)
		require.NoError(t, err)

		record := &auth.Token{ID: uuid.New(), UserID: user.ID, Kind: auth.TokenKindVerifyEmail}

		tokens.On("FindActive", mock.Anything, verifyToken, auth.TokenKindVerifyEmail, user.ID).
			Return(record, nil).Once()
		users.On("MarkEmailVerifiedTx", mock.Anything, mock.Anything, user.ID).Return(nil).Once()
		tokens.On("PurgeByUserAndKindTx", mock.Anything, mock.Anything, user.ID, auth.TokenKindVerifyEmail).
			Return(nil).Once()

		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				require.NoError(t, fn(args.Get(0).(context.Context), tx))
			}).Once()

		err = manager.VerifyEmail(ctx, verifyToken)
		require.NoError(t, err)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("an expired token collapses to the verify failure", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)
		user := testUser(t, "password123")

		verifyToken, err := manager.TokenService().Sign(
			user.ID.String(), string(user.Role), time.Now().Add(-time.Minute), auth.TokenKindVerifyEmail)
		require.NoError(t, err)

		err = manager.VerifyEmail(ctx, verifyToken)
		assert.ErrorIs(t, err, auth.ErrEmailVerifyFailed)
	})
}
