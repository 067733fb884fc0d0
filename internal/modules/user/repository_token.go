package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-identity-core/internal/database"
	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type tokenRow struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	Purpose      string     `db:"purpose"`
	TokenHash    string     `db:"token_hash"`
	ExpiresAt    time.Time  `db:"expires_at"`
	Used         bool       `db:"used"`
	UsedAt       *time.Time `db:"used_at"`
	CreatedAt    time.Time  `db:"created_at"`
	ParentEmail  *string    `db:"parent_email"`
	ParentName   *string    `db:"parent_name"`
	Relationship *string    `db:"relationship"`
}

func (r tokenRow) toDomain() *EphemeralToken {
	t := &EphemeralToken{
		ID:        r.ID,
		UserID:    r.UserID,
		Purpose:   Purpose(r.Purpose),
		TokenHash: r.TokenHash,
		ExpiresAt: r.ExpiresAt,
		Used:      r.Used,
		UsedAt:    r.UsedAt,
		CreatedAt: r.CreatedAt,
	}
	if r.ParentEmail != nil {
		t.Consent = &ConsentDetails{
			ParentEmail:  *r.ParentEmail,
			ParentName:   deref(r.ParentName),
			Relationship: deref(r.Relationship),
		}
	}
	return t
}

var tokenColumns = []string{
	"id", "user_id", "purpose", "token_hash", "expires_at", "used", "used_at", "created_at",
	"parent_email", "parent_name", "relationship",
}

type tokenRepository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewTokenRepository creates a Postgres-backed TokenRepository over the ephemeral_tokens table.
func NewTokenRepository(db database.DBTX) TokenRepository {
	return &tokenRepository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *tokenRepository) Save(ctx context.Context, t *EphemeralToken) error {
	var parentEmail, parentName, relationship *string
	if t.Consent != nil {
		parentEmail = &t.Consent.ParentEmail
		parentName = &t.Consent.ParentName
		relationship = &t.Consent.Relationship
	}
	query, args, err := r.psql.Insert("ephemeral_tokens").
		Columns(tokenColumns...).
		Values(t.ID, t.UserID, string(t.Purpose), t.TokenHash, t.ExpiresAt, t.Used, t.UsedAt, t.CreatedAt,
			parentEmail, parentName, relationship).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *tokenRepository) FindByToken(ctx context.Context, purpose Purpose, plaintext string) (*EphemeralToken, error) {
	t, err := r.findOne(ctx, r.psql.Select(tokenColumns...).
		From("ephemeral_tokens").
		Where(squirrel.Eq{"token_hash": session.HashToken(plaintext), "purpose": string(purpose)}).
		Limit(1))
	if err != nil {
		return nil, err
	}
	t.Token = plaintext
	return t, nil
}

func (r *tokenRepository) FindPendingForUser(ctx context.Context, purpose Purpose, userID string, now time.Time) (*EphemeralToken, error) {
	return r.findOne(ctx, r.psql.Select(tokenColumns...).
		From("ephemeral_tokens").
		Where(squirrel.Eq{"user_id": userID, "purpose": string(purpose), "used": false}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		Limit(1))
}

func (r *tokenRepository) InvalidateAllForUser(ctx context.Context, purpose Purpose, userID string, now time.Time) (int64, error) {
	query, args, err := r.psql.Update("ephemeral_tokens").
		Set("expires_at", now).
		Where(squirrel.Eq{"user_id": userID, "purpose": string(purpose), "used": false}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkUsed only flips unused rows, so a concurrent second consumer sees zero rows affected.
func (r *tokenRepository) MarkUsed(ctx context.Context, t *EphemeralToken) error {
	query, args, err := r.psql.Update("ephemeral_tokens").
		Set("used", true).
		Set("used_at", t.UsedAt).
		Where(squirrel.Eq{"id": t.ID, "used": false}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return t.Purpose.alreadyUsed()
	}
	return nil
}

func (r *tokenRepository) findOne(ctx context.Context, b squirrel.SelectBuilder) (*EphemeralToken, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var row tokenRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound.WithCause(err)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
