package auth_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-auth-server"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testLogger is a noop logger for tests that do not assert logging
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// mockConfig implements auth.Config with minimal settings
type mockConfig struct {
	signingKey string
	issuer     string
	audience   []string
	accessExp  int
	refreshExp int
	resetExp   int
	verifyExp  int
}

func newMockConfig() *mockConfig {
	return &mockConfig{
		signingKey: "test-signing-key",
		issuer:     "test-issuer",
		audience:   []string{"test-audience"},
	}
}

func (m *mockConfig) GetSigningKey() string           { return m.signingKey }
func (m *mockConfig) GetSigningMethod() string        { return "HS256" }
func (m *mockConfig) GetContextKey() string           { return "user" }
func (m *mockConfig) GetTokenLookup() string          { return "header:Authorization" }
func (m *mockConfig) GetAuthScheme() string           { return "Bearer" }
func (m *mockConfig) GetIssuer() string               { return m.issuer }
func (m *mockConfig) GetAudience() []string           { return m.audience }
func (m *mockConfig) GetAccessTokenExpiration() int   { return m.accessExp }
func (m *mockConfig) GetRefreshTokenExpiration() int  { return m.refreshExp }
func (m *mockConfig) GetResetTokenExpiration() int    { return m.resetExp }
func (m *mockConfig) GetVerifyTokenExpiration() int   { return m.verifyExp }

// claimsForUser builds the claims the JWT middleware would store for a caller
func claimsForUser(userID string, role auth.UserRole) *auth.TokenClaims {
	return &auth.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		UserRole:         role,
	}
}

// MockUsers implements auth.Users. Methods not stubbed below fall through to
// the embedded nil interface and panic if reached.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id, criteria)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *auth.User, criteria ...repository.UpdateCriteria) (*auth.User, error) {
	args := m.Called(ctx, record, criteria)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context, opts auth.ListUsersOptions) ([]*auth.User, int, error) {
	args := m.Called(ctx, opts)
	var records []*auth.User
	if r, ok := args.Get(0).([]*auth.User); ok {
		records = r
	}
	return records, args.Int(1), args.Error(2)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockUsers) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTokens implements auth.Tokens
type MockTokens struct {
	mock.Mock
	auth.Tokens
}

func (m *MockTokens) Save(ctx context.Context, record *auth.Token) (*auth.Token, error) {
	args := m.Called(ctx, record)
	if t, ok := args.Get(0).(*auth.Token); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokens) FindActive(ctx context.Context, token string, kind auth.TokenKind, userID uuid.UUID) (*auth.Token, error) {
	args := m.Called(ctx, token, kind, userID)
	if t, ok := args.Get(0).(*auth.Token); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokens) Consume(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTokens) PurgeByUserAndKindTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind auth.TokenKind) error {
	args := m.Called(ctx, tx, userID, kind)
	return args.Error(0)
}

func (m *MockTokens) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return int64(args.Int(0)), args.Error(1)
}

// MockRepositoryManager implements auth.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Users() auth.Users {
	args := m.Called()
	return args.Get(0).(auth.Users)
}

func (m *MockRepositoryManager) Tokens() auth.Tokens {
	args := m.Called()
	return args.Get(0).(auth.Tokens)
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

// MockSessions implements auth.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Login(ctx context.Context, email, password string) (*auth.User, *auth.AuthTokens, error) {
	args := m.Called(ctx, email, password)
	var user *auth.User
	var tokens *auth.AuthTokens
	if u, ok := args.Get(0).(*auth.User); ok {
		user = u
	}
	if t, ok := args.Get(1).(*auth.AuthTokens); ok {
		tokens = t
	}
	return user, tokens, args.Error(2)
}

func (m *MockSessions) IssueAuthTokens(ctx context.Context, user *auth.User) (*auth.AuthTokens, error) {
	args := m.Called(ctx, user)
	if t, ok := args.Get(0).(*auth.AuthTokens); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) RefreshAuth(ctx context.Context, refreshToken string) (*auth.AuthTokens, error) {
	args := m.Called(ctx, refreshToken)
	if t, ok := args.Get(0).(*auth.AuthTokens); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockSessions) GenerateResetPasswordToken(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockSessions) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *MockSessions) GenerateVerifyEmailToken(ctx context.Context, user *auth.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockSessions) VerifyEmail(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
