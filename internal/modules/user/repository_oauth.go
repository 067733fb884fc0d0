package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-identity-core/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type oauthStateRepository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewOAuthStateRepository creates a Postgres-backed OAuthStateRepository.
func NewOAuthStateRepository(db database.DBTX) OAuthStateRepository {
	return &oauthStateRepository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert inserts a new OAuth state record into the database.
func (r *oauthStateRepository) Insert(ctx context.Context, state *OAuthState) error {
	query, args, err := r.psql.Insert("oauth_states").
		Columns("state", "provider", "verifier", "expires_at", "created_at").
		Values(state.State, string(state.Provider), state.Verifier, state.ExpiresAt, state.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// Get retrieves an OAuth state record by its state string.
func (r *oauthStateRepository) Get(ctx context.Context, state string) (*OAuthState, error) {
	query, args, err := r.psql.Select("state", "provider", "verifier", "expires_at", "created_at").
		From("oauth_states").
		Where(squirrel.Eq{"state": state}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s OAuthState
	if err := pgxscan.Get(ctx, r.db, &s, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOAuthStateInvalid.WithCause(err)
		}
		return nil, err
	}
	return &s, nil
}

// Delete removes an OAuth state record. States are single use.
func (r *oauthStateRepository) Delete(ctx context.Context, state string) error {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Eq{"state": state}).
		ToSql()
	if err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOAuthStateInvalid
	}
	return nil
}

// DeleteExpired removes all states that expired before now.
func (r *oauthStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Lt{"expires_at": now}).
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
