package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tokens persists refresh, reset, and verification tokens. Access tokens
// never touch this store.
type Tokens interface {
	repository.Repository[*Token]

	Save(ctx context.Context, record *Token) (*Token, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error)
	FindActive(ctx context.Context, token string, kind TokenKind, userID uuid.UUID) (*Token, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind, userID uuid.UUID) (*Token, error)
	Consume(ctx context.Context, id uuid.UUID) error
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	PurgeByUserAndKind(ctx context.Context, userID uuid.UUID, kind TokenKind) error
	PurgeByUserAndKindTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokens struct {
	repository.Repository[*Token]
	db *bun.DB
}

var (
	_ Tokens                        = (*tokens)(nil)
	_ repository.Repository[*Token] = (*tokens)(nil)
)

func NewTokensRepository(db *bun.DB) Tokens {
	repo := repository.NewRepository[*Token](db, repository.ModelHandlers[*Token]{
		NewRecord: func() *Token { return &Token{} },
		GetID: func(t *Token) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Token, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &tokens{
		Repository: repo,
		db:         db,
	}
}

func (a *tokens) Save(ctx context.Context, record *Token) (*Token, error) {
	return a.SaveTx(ctx, a.db, record)
}

func (a *tokens) SaveTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

// FindActive returns the stored record for a token of the given kind that is
// neither revoked nor expired. Pass uuid.Nil to match any owner.
func (a *tokens) FindActive(ctx context.Context, token string, kind TokenKind, userID uuid.UUID) (*Token, error) {
	return a.FindActiveTx(ctx, a.db, token, kind, userID)
}

func (a *tokens) FindActiveTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind, userID uuid.UUID) (*Token, error) {
	record := &Token{}
	q := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.kind = ?", kind).
		Where("?TableAlias.revoked = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now())

	if userID != uuid.Nil {
		q.Where("?TableAlias.user_id = ?", userID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"kind": string(kind),
				})
		}
		return nil, err
	}

	return record, nil
}

// Consume removes a token record so it can never be redeemed twice
func (a *tokens) Consume(ctx context.Context, id uuid.UUID) error {
	return a.ConsumeTx(ctx, a.db, id)
}

func (a *tokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *tokens) PurgeByUserAndKind(ctx context.Context, userID uuid.UUID, kind TokenKind) error {
	return a.PurgeByUserAndKindTx(ctx, a.db, userID, kind)
}

func (a *tokens) PurgeByUserAndKindTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, kind TokenKind) error {
	_, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.kind = ?", kind).
		Exec(ctx)

	return err
}

// PurgeExpired drops every token past its expiry, regardless of kind
func (a *tokens) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
