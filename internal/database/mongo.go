package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo holds a connected client and the application database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *slog.Logger
}

func NewMongoConnection(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	logger.Info("mongo connection established", slog.String("database", cfg.Database))

	return &Mongo{Client: client, Database: client.Database(cfg.Database), logger: logger}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("closing mongo connection")
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}
