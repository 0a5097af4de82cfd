package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/accountd/internal/user/entity"
)

// ErrNotFound is returned when a query matches no rows.
var ErrNotFound = errors.New("user not found")

// ConstraintViolation reports a store-level uniqueness rejection in a typed
// way so callers never inspect vendor error codes. The driver-specific
// detection lives here and nowhere else.
type ConstraintViolation struct {
	Field string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %s", e.Field)
}

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		field := "email"
		if strings.Contains(pqErr.Constraint, "name") {
			field = "name"
		}
		return &ConstraintViolation{Field: field}
	}
	return err
}

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id SERIAL PRIMARY KEY,
  name VARCHAR(100) NOT NULL,
  email VARCHAR(100) UNIQUE NOT NULL,
  password VARCHAR(255) NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user. The uniqueness check and the insert are a
// single round-trip riding the email constraint, so concurrent
// registrations with the same email cannot race past each other.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (*entity.PublicUser, error) {
	const q = `INSERT INTO users (name, email, password) VALUES ($1, $2, $3)
		RETURNING id, name, email, created_at`
	var u entity.PublicUser
	if err := r.db.GetContext(ctx, &u, q, name, email, passwordHash); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// GetByEmail returns the full row including the password hash, or ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, name, email, password, created_at FROM users WHERE email = $1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// GetByID returns the public projection of a user, or ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.PublicUser, error) {
	const q = `SELECT id, name, email, created_at FROM users WHERE id = $1`
	var u entity.PublicUser
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// List returns all users, newest first, without password hashes.
func (r *UserRepo) List(ctx context.Context) ([]entity.PublicUser, error) {
	const q = `SELECT id, name, email, created_at FROM users ORDER BY created_at DESC`
	users := []entity.PublicUser{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// UpdatePartial updates only the supplied fields of the given row. At least
// one of name/email must be non-nil; the caller validates that.
func (r *UserRepo) UpdatePartial(ctx context.Context, id int64, name, email *string) (*entity.PublicUser, error) {
	sets := []string{}
	args := []any{}
	n := 1
	if name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", n))
		args = append(args, *name)
		n++
	}
	if email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", n))
		args = append(args, *email)
		n++
	}
	if len(sets) == 0 {
		return nil, errors.New("no fields to update")
	}
	q := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING id, name, email, created_at",
		strings.Join(sets, ", "), n)
	args = append(args, id)

	var u entity.PublicUser
	if err := r.db.GetContext(ctx, &u, q, args...); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// Delete removes a row and returns its non-secret fields, or ErrNotFound.
func (r *UserRepo) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	const q = `DELETE FROM users WHERE id = $1 RETURNING id, name, email`
	var u entity.DeletedUser
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}
