package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/user"
)

const (
	userColumns = `id, first_name, last_name, email, password_hash, phone, role, enabled, created_at`

	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	userExistsSQL     = `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`

	createUserSQL = `INSERT INTO users (first_name, last_name, email, password_hash, phone, role, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	updateUserSQL = `UPDATE users
		SET first_name = $2, last_name = $3, password_hash = $4, phone = $5, role = $6, enabled = $7
		WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	conn
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{conn{pool: pool}}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, userExistsSQL, email).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check user email")
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.q(ctx).QueryRow(ctx, createUserSQL,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone, string(u.Role), u.Enabled,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return apperr.Wrap(err, apperr.Conflict, "email "+u.Email+" is already registered")
		}
		return errors.Wrapf(err, "create user %q", u.Email)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.q(ctx).Exec(ctx, updateUserSQL,
		u.ID, u.FirstName, u.LastName, u.PasswordHash, u.Phone, string(u.Role), u.Enabled,
	)
	if err != nil {
		return errors.Wrapf(err, "update user %d", u.ID)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.Phone, &role, &u.Enabled, &u.CreatedAt,
	)
	u.Role = user.Role(role)
	return u, err
}
