package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenKind discriminates persisted token records. Access tokens are
// stateless and never stored, so TokenKindAccess only appears in claims.
type TokenKind = string

const (
	// TokenKindAccess is the short-lived stateless bearer credential
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the persisted, single-use-per-rotation credential
	TokenKindRefresh TokenKind = "refresh"
	// TokenKindResetPassword is the short-lived password reset credential
	TokenKindResetPassword TokenKind = "reset_password"
	// TokenKindVerifyEmail is the short-lived email verification credential
	TokenKindVerifyEmail TokenKind = "verify_email"
)

// User is the principal model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Identity returns an Identity view of the user for claims issuance
func (u *User) Identity() Identity {
	return NewIdentityFromUser(u)
}

// Token is the persisted record of an issued non-access token. The store
// does not enforce uniqueness per (owner, kind); single-use semantics come
// from the session manager deleting records on consumption.
type Token struct {
	bun.BaseModel `bun:"table:tokens,alias:tkn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Revoked       bool       `bun:"revoked,notnull,default:false" json:"revoked,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
