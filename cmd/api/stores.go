package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/services"
)

// stores holds the adapters selected by configuration plus their probes
// and shutdown hooks.
type stores struct {
	users              services.UserRepository
	verificationTokens services.OneTimeTokenRepository
	resetTokens        services.OneTimeTokenRepository
	cache              cache.Store
	memoryCache        *cache.MemoryStore

	probes  map[string]handlers.Probe
	closers []func(context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{probes: map[string]handlers.Probe{}}

	if err := st.openCredentialStore(ctx, cfg, logger); err != nil {
		st.close(ctx, logger)
		return nil, err
	}
	if err := st.openCache(ctx, cfg, logger); err != nil {
		st.close(ctx, logger)
		return nil, err
	}
	return st, nil
}

func (st *stores) openCredentialStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		st.closers = append(st.closers, func(context.Context) error { db.Close(); return nil })

		if err := db.Migrate(ctx); err != nil {
			return err
		}

		st.users = repositories.NewUserRepository(db)
		st.verificationTokens = repositories.NewVerificationTokenRepository(db)
		st.resetTokens = repositories.NewPasswordResetTokenRepository(db)
		st.probes["postgres"] = db.HealthCheck

	case config.StoreDriverMongo:
		m, err := database.NewMongoConnection(ctx, &cfg.Mongo, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		st.closers = append(st.closers, m.Close)

		users := repositories.NewMongoUserRepository(m)
		verification := repositories.NewMongoVerificationTokenRepository(m)
		reset := repositories.NewMongoPasswordResetTokenRepository(m)
		for _, idx := range []interface{ EnsureIndexes(context.Context) error }{users, verification, reset} {
			if err := idx.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to create mongo indexes: %w", err)
			}
		}

		st.users = users
		st.verificationTokens = verification
		st.resetTokens = reset
		st.probes["mongodb"] = m.HealthCheck

	case config.StoreDriverMemory:
		logger.Warn("using in-memory credential store; data is lost on restart")
		st.users = repositories.NewMemoryUserRepository()
		st.verificationTokens = repositories.NewMemoryTokenRepository()
		st.resetTokens = repositories.NewMemoryTokenRepository()
	}
	return nil
}

func (st *stores) openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.Store.CacheDriver {
	case config.CacheDriverRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		st.cache = cache.NewRedisStore(client)
		st.probes["redis"] = st.cache.Ping
		logger.Info("redis connection established", slog.String("addr", cfg.Redis.Addr))

	case config.CacheDriverMemory:
		logger.Warn("using in-memory token blacklist; revocations are lost on restart")
		st.memoryCache = cache.NewMemoryStore()
		st.cache = st.memoryCache
	}

	st.closers = append(st.closers, func(context.Context) error { return st.cache.Close() })
	return nil
}

// close releases stores in reverse order of opening.
func (st *stores) close(ctx context.Context, logger *slog.Logger) {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}
	st.closers = nil
}
