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

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Age          int       `db:"age"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Role         string    `db:"role"`
	RoleSource   string    `db:"role_source"`
	Verified     bool      `db:"verified"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() *User {
	return &User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Age:          r.Age,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         Role(r.Role),
		RoleSource:   RoleSource(r.RoleSource),
		Verified:     r.Verified,
		Status:       Status(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

var userColumns = []string{
	"id", "email", "password_hash", "age", "first_name", "last_name",
	"role", "role_source", "verified", "status", "created_at", "updated_at",
}

// userRepository implements UserRepository using pgx and squirrel.
type userRepository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewUserRepository creates a Postgres-backed UserRepository.
func NewUserRepository(db database.DBTX) UserRepository {
	return &userRepository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *userRepository) Create(ctx context.Context, u *User) error {
	query, args, err := r.psql.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Email, u.PasswordHash, u.Age, u.FirstName, u.LastName,
			string(u.Role), string(u.RoleSource), u.Verified, string(u.Status), u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByID returns ErrNotFound if no user is found.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByEmail matches the normalized email. Returns ErrNotFound if no user is found.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"email": NormalizeEmail(email)})
}

func (r *userRepository) Update(ctx context.Context, u *User) error {
	query, args, err := r.psql.Update("users").
		Set("email", u.Email).
		Set("password_hash", u.PasswordHash).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("role", string(u.Role)).
		Set("verified", u.Verified).
		Set("status", string(u.Status)).
		Set("updated_at", u.UpdatedAt).
		Where(squirrel.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists.WithCause(err)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(ctx context.Context, role Role, status *Status) (int, error) {
	query, args, err := r.psql.Select("COUNT(*)").
		From("users").
		Where(roleFilter(role, status)).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role Role, page Page, status *Status) ([]*User, error) {
	page = page.normalize()
	query, args, err := r.psql.Select(userColumns...).
		From("users").
		Where(roleFilter(role, status)).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(page.Size)).
		Offset(page.offset()).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []userRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func roleFilter(role Role, status *Status) squirrel.Eq {
	eq := squirrel.Eq{"role": string(role)}
	if status != nil {
		eq["status"] = string(*status)
	}
	return eq
}

func (r *userRepository) findOne(ctx context.Context, cond squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(userColumns...).From("users").Where(cond).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var row userRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return row.toDomain(), nil
}
