package user

import (
	"context"
	"time"
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) offset() uint64 {
	return uint64((p.Number - 1) * p.Size)
}

// UserRepository persists User aggregates.
// Create and Update return ErrEmailExists on a duplicate email, lookups return ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	CountByRole(ctx context.Context, role Role, status *Status) (int, error)
	ListByRole(ctx context.Context, role Role, page Page, status *Status) ([]*User, error)
}

// TokenRepository persists ephemeral tokens of every purpose.
type TokenRepository interface {
	Save(ctx context.Context, t *EphemeralToken) error
	// FindByToken looks a token up by its plaintext value. Returns ErrTokenNotFound.
	FindByToken(ctx context.Context, purpose Purpose, plaintext string) (*EphemeralToken, error)
	// FindPendingForUser returns the newest unused, unexpired token. Returns ErrTokenNotFound.
	FindPendingForUser(ctx context.Context, purpose Purpose, userID string, now time.Time) (*EphemeralToken, error)
	// InvalidateAllForUser expires every live token of purpose for userID.
	InvalidateAllForUser(ctx context.Context, purpose Purpose, userID string, now time.Time) (int64, error)
	// MarkUsed records consumption. It fails when the token was consumed concurrently.
	MarkUsed(ctx context.Context, t *EphemeralToken) error
}

// OAuthStateRepository stores in-flight OAuth logins.
type OAuthStateRepository interface {
	Insert(ctx context.Context, s *OAuthState) error
	Get(ctx context.Context, state string) (*OAuthState, error)
	Delete(ctx context.Context, state string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
