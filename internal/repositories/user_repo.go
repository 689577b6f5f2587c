package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, enable,
	email_verified, verification_token, verification_token_expires,
	account_status, locked_at, locked_reason, deleted_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both pgx.Row and pgx.Rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Role, &user.Enable,
		&user.EmailVerified, &user.VerificationToken, &user.VerificationTokenExpires,
		&user.AccountStatus, &user.LockedAt, &user.LockedReason, &user.DeletedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// parseID turns a caller-supplied id into the column's type. Ids that are
// not UUIDs cannot name a row, so callers treat them as not found.
func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, models.ErrNotFound
	}
	return parsed, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, userID))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := prepareNewUser(user, time.Now().UTC()); err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.Enable,
		user.EmailVerified, user.VerificationToken, user.VerificationTokenExpires,
		user.AccountStatus, user.LockedAt, user.LockedReason, user.DeletedAt,
		user.CreatedAt, user.UpdatedAt,
	)
	return database.MapPostgresError(err)
}

// Save writes every mutable field of an existing user.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	userID, err := parseID(user.ID)
	if err != nil {
		return err
	}
	if err := prepareUser(user, time.Now().UTC()); err != nil {
		return err
	}

	query := `
		UPDATE users SET
			email = $2, password_hash = $3, first_name = $4, last_name = $5,
			role = $6, enable = $7,
			email_verified = $8, verification_token = $9, verification_token_expires = $10,
			account_status = $11, locked_at = $12, locked_reason = $13, deleted_at = $14,
			updated_at = $15
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		userID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.Enable,
		user.EmailVerified, user.VerificationToken, user.VerificationTokenExpires,
		user.AccountStatus, user.LockedAt, user.LockedReason, user.DeletedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
