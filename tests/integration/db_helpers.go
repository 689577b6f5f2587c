package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("warden"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	db := database.NewFromPool(pool, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         db,
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"password_reset_tokens",
		"verification_tokens",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repositories groups the Postgres adapters under test.
type Repositories struct {
	Users              *repositories.UserRepository
	VerificationTokens *repositories.TokenRepository
	ResetTokens        *repositories.TokenRepository
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) Repositories {
	return Repositories{
		Users:              repositories.NewUserRepository(db),
		VerificationTokens: repositories.NewVerificationTokenRepository(db),
		ResetTokens:        repositories.NewPasswordResetTokenRepository(db),
	}
}

// SeedUser inserts an active test user through the repository, so the
// password goes through the same strength check and hashing as production.
func SeedUser(ctx context.Context, users *repositories.UserRepository, email, password string, verified bool) (*models.User, error) {
	user := &models.User{
		Email:         email,
		Password:      password,
		FirstName:     "Test",
		LastName:      "User",
		Role:          models.RoleUser,
		Enable:        true,
		EmailVerified: verified,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// SeedExpiredResetToken stores a reset token that expired an hour ago and
// returns the raw value a client would hold.
func SeedExpiredResetToken(ctx context.Context, pool *pgxpool.Pool, user *models.User) (string, error) {
	token := "test-expired-reset-token-" + user.ID

	query := `
		INSERT INTO password_reset_tokens (id, user_id, email, token_hash, created_at, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW() - INTERVAL '2 hours', NOW() - INTERVAL '1 hour')
	`

	if _, err := pool.Exec(ctx, query, user.ID, user.Email, auth.HashOpaqueToken(token)); err != nil {
		return "", fmt.Errorf("failed to insert expired token: %w", err)
	}

	return token, nil
}

// CountRows returns the number of rows in table owned by userID.
func CountRows(ctx context.Context, pool *pgxpool.Pool, table, userID string) (int, error) {
	var n int
	err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = $1", table), userID).Scan(&n)
	return n, err
}
