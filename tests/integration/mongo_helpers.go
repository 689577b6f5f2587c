package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/repositories"
)

// TestMongo manages a MongoDB testcontainer and the connection to it
type TestMongo struct {
	Container *mongodb.MongoDBContainer
	URI       string
	Mongo     *database.Mongo
}

// SetupTestMongo starts a MongoDB testcontainer and connects the application client
func SetupTestMongo(ctx context.Context) (*TestMongo, error) {
	container, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:7"))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mongo connection string: %w", err)
	}

	m, err := database.NewMongoConnection(ctx, &config.MongoConfig{URI: uri, Database: "warden"},
		slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestMongo{Container: container, URI: uri, Mongo: m}, nil
}

// Teardown disconnects the client and stops the container
func (tm *TestMongo) Teardown(ctx context.Context) error {
	if tm.Mongo != nil {
		_ = tm.Mongo.Close(ctx)
	}
	if tm.Container != nil {
		return tm.Container.Terminate(ctx)
	}
	return nil
}

// Reset drops every collection so each test starts from an empty database
func (tm *TestMongo) Reset(ctx context.Context) error {
	names, err := tm.Mongo.Database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range names {
		if err := tm.Mongo.Database.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
	}
	return nil
}

// MongoRepositories groups the document-store adapters under test.
type MongoRepositories struct {
	Users              *repositories.MongoUserRepository
	VerificationTokens *repositories.MongoTokenRepository
	ResetTokens        *repositories.MongoTokenRepository
}

// InitializeMongoRepositories creates the adapters and their indexes, the way
// the API does at startup.
func InitializeMongoRepositories(ctx context.Context, m *database.Mongo) (MongoRepositories, error) {
	repos := MongoRepositories{
		Users:              repositories.NewMongoUserRepository(m),
		VerificationTokens: repositories.NewMongoVerificationTokenRepository(m),
		ResetTokens:        repositories.NewMongoPasswordResetTokenRepository(m),
	}
	if err := repos.Users.EnsureIndexes(ctx); err != nil {
		return repos, err
	}
	if err := repos.VerificationTokens.EnsureIndexes(ctx); err != nil {
		return repos, err
	}
	if err := repos.ResetTokens.EnsureIndexes(ctx); err != nil {
		return repos, err
	}
	return repos, nil
}
