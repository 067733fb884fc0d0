package user

import (
	"context"
	"testing"
	"time"

	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()
	u, _, err := New("a@example.com", "hash", 30, "A", "B", now)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, "a@example.com", "hash", 30, "A", "B", "user", "derived", false, "pending_verification", now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1 LIMIT 1").
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", "a@example.com", "hash", 30, "A", "B", "user", "derived", true, "active", now, now))

	u, err := repo.FindByEmail(context.Background(), " A@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.CanLogin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := &User{ID: "u1", Email: "a@example.com", Role: RoleUser, Status: StatusActive}

	mock.ExpectExec("UPDATE users SET").
		WithArgs("a@example.com", "", "", "", "user", false, "active", u.UpdatedAt, "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Update(context.Background(), u), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCountByRole(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	active := StatusActive

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE").
		WithArgs("administrator", "active").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByRole(context.Background(), RoleAdministrator, &active)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListByRolePaginates(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE role = \\$1 ORDER BY created_at ASC, id ASC LIMIT 10 OFFSET 20").
		WithArgs("moderator").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("m1", "m@example.com", "hash", 40, "", "", "moderator", "assigned", true, "active", now, now))

	users, err := repo.ListByRole(context.Background(), RoleModerator, Page{Number: 3, Size: 10}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, RoleAssigned, users[0].RoleSource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryFindByTokenUsesHash(t *testing.T) {
	mock := newMock(t)
	repo := NewTokenRepository(mock)
	now := time.Now()
	parent := "p@example.com"

	mock.ExpectQuery("SELECT (.+) FROM ephemeral_tokens WHERE").
		WithArgs("parental_consent", session.HashToken("plain")).
		WillReturnRows(pgxmock.NewRows(tokenColumns).
			AddRow("t1", "u1", "parental_consent", session.HashToken("plain"), now.Add(time.Hour), false, (*time.Time)(nil), now,
				&parent, (*string)(nil), (*string)(nil)))

	tok, err := repo.FindByToken(context.Background(), PurposeParentalConsent, "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", tok.Token)
	require.NotNil(t, tok.Consent)
	assert.Equal(t, parent, tok.Consent.ParentEmail)
	assert.Empty(t, tok.Consent.ParentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryFindByTokenNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTokenRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM ephemeral_tokens").
		WithArgs("password_reset", session.HashToken("nope")).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), PurposePasswordReset, "nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepositoryMarkUsedTwice(t *testing.T) {
	mock := newMock(t)
	repo := NewTokenRepository(mock)
	now := time.Now()
	tok := &EphemeralToken{ID: "t1", Purpose: PurposeEmailVerification, UsedAt: &now}

	mock.ExpectExec("UPDATE ephemeral_tokens SET used").
		WithArgs(true, &now, "t1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE ephemeral_tokens SET used").
		WithArgs(true, &now, "t1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkUsed(context.Background(), tok))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), tok), ErrTokenAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryInvalidateAllForUser(t *testing.T) {
	mock := newMock(t)
	repo := NewTokenRepository(mock)
	now := time.Now()

	mock.ExpectExec("UPDATE ephemeral_tokens SET expires_at").
		WithArgs(now, "email_verification", false, "u1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := repo.InvalidateAllForUser(context.Background(), PurposeEmailVerification, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthStateRepositoryDeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewOAuthStateRepository(mock)

	mock.ExpectExec("DELETE FROM oauth_states WHERE state = \\$1").
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "s1"), ErrOAuthStateInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
