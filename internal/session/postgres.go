package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-identity-core/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Repository persists sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	FindByAccessToken(ctx context.Context, accessToken string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	UpdateTokens(ctx context.Context, s *Session, previousRefreshToken string) error
	Invalidate(ctx context.Context, id string) error
	InvalidateAllForUser(ctx context.Context, userID string) (int64, error)
	CountActiveForUser(ctx context.Context, userID string, now time.Time) (int, error)
}

// Tokens never reach the database in plaintext; rows are keyed by their SHA-256 hash.
type row struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	AccessTokenHash  string    `db:"access_token_hash"`
	RefreshTokenHash string    `db:"refresh_token_hash"`
	DeviceInfo       *string   `db:"device_info"`
	IPAddress        *string   `db:"ip_address"`
	ExpiresAt        time.Time `db:"expires_at"`
	Active           bool      `db:"active"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

var columns = []string{
	"id", "user_id", "access_token_hash", "refresh_token_hash", "device_info", "ip_address",
	"expires_at", "active", "created_at", "updated_at",
}

type postgresRepository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewPostgresRepository returns a Postgres-backed session Repository.
func NewPostgresRepository(db database.DBTX) Repository {
	return &postgresRepository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (p *postgresRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now()
	query, args, err := p.psql.Insert("sessions").
		Columns(columns...).
		Values(s.ID, s.UserID, HashToken(s.AccessToken), HashToken(s.RefreshToken), nullable(s.DeviceInfo), nullable(s.IPAddress),
			s.ExpiresAt, s.Active, s.CreatedAt, now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *postgresRepository) FindByAccessToken(ctx context.Context, accessToken string) (*Session, error) {
	s, err := p.findOne(ctx, squirrel.Eq{"access_token_hash": HashToken(accessToken)})
	if err != nil {
		return nil, err
	}
	s.AccessToken = accessToken
	return s, nil
}

func (p *postgresRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	s, err := p.findOne(ctx, squirrel.Eq{"refresh_token_hash": HashToken(refreshToken)})
	if err != nil {
		return nil, err
	}
	s.RefreshToken = refreshToken
	return s, nil
}

// UpdateTokens persists a rotated token pair. Only the token hashes change.
// The row must still hold previousRefreshToken, so of two rotations racing on one
// refresh token the second finds no row and gets ErrNotFound.
func (p *postgresRepository) UpdateTokens(ctx context.Context, s *Session, previousRefreshToken string) error {
	query, args, err := p.psql.Update("sessions").
		Set("access_token_hash", HashToken(s.AccessToken)).
		Set("refresh_token_hash", HashToken(s.RefreshToken)).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": s.ID, "active": true, "refresh_token_hash": HashToken(previousRefreshToken)}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rotate session tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgresRepository) Invalidate(ctx context.Context, id string) error {
	query, args, err := p.psql.Update("sessions").
		Set("active", false).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgresRepository) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	query, args, err := p.psql.Update("sessions").
		Set("active", false).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": userID, "active": true}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("invalidate user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *postgresRepository) CountActiveForUser(ctx context.Context, userID string, now time.Time) (int, error) {
	query, args, err := p.psql.Select("COUNT(*)").
		From("sessions").
		Where(squirrel.Eq{"user_id": userID, "active": true}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := p.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (p *postgresRepository) findOne(ctx context.Context, cond squirrel.Sqlizer) (*Session, error) {
	query, args, err := p.psql.Select(columns...).From("sessions").Where(cond).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	var r row
	if err := pgxscan.Get(ctx, p.db, &r, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Session{
		ID:         r.ID,
		UserID:     r.UserID,
		DeviceInfo: deref(r.DeviceInfo),
		IPAddress:  deref(r.IPAddress),
		ExpiresAt:  r.ExpiresAt,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// HashToken returns the base64url SHA-256 digest stored in place of a token.
// Ephemeral tokens in the user module are stored under the same digest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
