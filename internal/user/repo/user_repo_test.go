package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func publicColumns() []string {
	return []string{"id", "name", "email", "created_at"}
}

func TestCreateReturnsRow(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Alice", "alice@x.com", "hashed").
		WillReturnRows(sqlmock.NewRows(publicColumns()).
			AddRow(1, "Alice", "alice@x.com", now))

	u, err := r.Create(context.Background(), "Alice", "alice@x.com", "hashed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmailIsTyped(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Bob", "alice@x.com", "hashed").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := r.Create(context.Background(), "Bob", "alice@x.com", "hashed")
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "email", cv.Field)
}

func TestGetByEmailNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name, email, password, created_at FROM users WHERE email").
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "created_at"}))

	_, err := r.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, email, created_at FROM users ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(publicColumns()).
			AddRow(2, "Bob", "bob@x.com", now).
			AddRow(1, "Alice", "alice@x.com", now.Add(-time.Hour)))

	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(2), users[0].ID)
	assert.Equal(t, int64(1), users[1].ID)
}

func TestUpdatePartialOnlyName(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	name := "Alice Cooper"

	// email must not appear in the statement when only name is supplied
	mock.ExpectQuery(`UPDATE users SET name = \$1 WHERE id = \$2`).
		WithArgs(name, int64(1)).
		WillReturnRows(sqlmock.NewRows(publicColumns()).
			AddRow(1, name, "alice@x.com", now))

	u, err := r.UpdatePartial(context.Background(), 1, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, u.Name)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePartialBothFields(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	name, email := "Alice", "new@x.com"

	mock.ExpectQuery(`UPDATE users SET name = \$1, email = \$2 WHERE id = \$3`).
		WithArgs(name, email, int64(1)).
		WillReturnRows(sqlmock.NewRows(publicColumns()).
			AddRow(1, name, email, now))

	u, err := r.UpdatePartial(context.Background(), 1, &name, &email)
	require.NoError(t, err)
	assert.Equal(t, email, u.Email)
}

func TestUpdatePartialDuplicateEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	email := "taken@x.com"

	mock.ExpectQuery("UPDATE users SET email").
		WithArgs(email, int64(1)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := r.UpdatePartial(context.Background(), 1, nil, &email)
	var cv *ConstraintViolation
	assert.ErrorAs(t, err, &cv)
}

func TestDeleteReturningRow(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("DELETE FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(1, "Alice", "alice@x.com"))

	u, err := r.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Alice", u.Name)
}

func TestDeleteMissingRow(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("DELETE FROM users WHERE id").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	_, err := r.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}
