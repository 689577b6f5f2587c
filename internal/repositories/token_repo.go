package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	verificationTokensTable  = "verification_tokens"
	passwordResetTokensTable = "password_reset_tokens"
)

// TokenRepository stores one-time tokens in a single table. The table name
// is fixed at construction from the constants above.
type TokenRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewVerificationTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{pool: db.Pool, table: verificationTokensTable}
}

func NewPasswordResetTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{pool: db.Pool, table: passwordResetTokensTable}
}

func scanTokenRow(row rowScanner) (*models.OneTimeToken, error) {
	var token models.OneTimeToken

	err := row.Scan(&token.ID, &token.UserID, &token.Email, &token.TokenHash, &token.CreatedAt, &token.ExpiresAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

func (r *TokenRepository) Create(ctx context.Context, token *models.OneTimeToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO ` + r.table + ` (id, user_id, email, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, token.ID, token.UserID, token.Email, token.TokenHash, token.CreatedAt, token.ExpiresAt)
	return database.MapPostgresError(err)
}

func (r *TokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	query := `SELECT id::text, user_id::text, email, token_hash, created_at, expires_at
		FROM ` + r.table + ` WHERE token_hash = $1`
	return scanTokenRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// DeleteByID is a no-op for ids that cannot name a row.
func (r *TokenRepository) DeleteByID(ctx context.Context, id string) error {
	tokenID, err := parseID(id)
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = $1`, tokenID)
	return database.MapPostgresError(err)
}

func (r *TokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	owner, err := parseID(userID)
	if err != nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE user_id = $1`, owner)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	owner, err := parseID(userID)
	if err != nil {
		return 0, nil
	}
	var n int64
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+r.table+` WHERE user_id = $1`, owner).Scan(&n)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// DeleteExpired removes tokens whose expiry is before the given instant.
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE expires_at < $1`, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
