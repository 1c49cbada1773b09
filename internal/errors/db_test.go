package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))

	err = MapDBError(fmt.Errorf("query: %w", pgx.ErrNoRows))
	assert.True(t, IsNotFound(err))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "profiles_auth_id_key",
		Detail:         "Key (auth_id)=(abc) already exists.",
	}

	err := MapDBError(pgErr)

	require.True(t, IsConflict(err))
	assert.Equal(t, "auth_id", GetField(err))
}

func TestMapDBError_UniqueViolationPrefersColumnName(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.UniqueViolation,
		ColumnName: "email",
	}

	err := MapDBError(pgErr)

	require.True(t, IsConflict(err))
	assert.Equal(t, "email", GetField(err))
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "email",
	}

	err := MapDBError(pgErr)

	require.True(t, IsValidation(err))
	assert.Equal(t, "email", GetField(err))
}

func TestMapDBError_CheckViolation(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
	assert.True(t, IsValidation(err))
}

func TestMapDBError_UnknownFallsBackToInternal(t *testing.T) {
	err := MapDBError(errors.New("connection refused"))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}
