package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	assert.NoError(t, MapPostgresError(nil))
	assert.ErrorIs(t, MapPostgresError(pgx.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, MapPostgresError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), models.ErrNotFound)

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	err := MapPostgresError(unique)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Contains(t, err.Error(), "users_email_key")

	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Message: "violates fk"}
	assert.ErrorIs(t, MapPostgresError(fk), models.ErrBadRequest)

	other := errors.New("connection reset")
	assert.Equal(t, other, MapPostgresError(other))
}
