package user

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/accountd/internal/auth"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: 4}

	hash, err := h.Hash("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	assert.True(t, h.Verify(hash, "pw123"))
	assert.False(t, h.Verify(hash, "pw124"))
	assert.False(t, h.Verify("not-a-hash", "pw123"))
}

func TestDeleteRejectsOtherOwnerBeforeStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	issuer, err := auth.NewIssuer("test-secret")
	require.NoError(t, err)

	svc := NewService(sqlx.NewDb(db, "sqlmock"), issuer, BcryptHasher{Cost: 4})

	_, err = svc.Delete(context.Background(), 2, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	// ownership is checked before any store round-trip
	assert.NoError(t, mock.ExpectationsWereMet())
}
