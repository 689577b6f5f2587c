package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoTokenRepository stores one-time tokens in a collection. A TTL index
// on expiresAt lets the server drop stale documents on its own; lookups
// still check expiry because the TTL monitor runs periodically.
type MongoTokenRepository struct {
	coll *mongo.Collection
}

func NewMongoVerificationTokenRepository(m *database.Mongo) *MongoTokenRepository {
	return &MongoTokenRepository{coll: m.Database.Collection(verificationTokensTable)}
}

func NewMongoPasswordResetTokenRepository(m *database.Mongo) *MongoTokenRepository {
	return &MongoTokenRepository{coll: m.Database.Collection(passwordResetTokensTable)}
}

func (r *MongoTokenRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", r.coll.Name(), err)
	}
	return nil
}

func (r *MongoTokenRepository) Create(ctx context.Context, token *models.OneTimeToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := r.coll.InsertOne(ctx, token)
	return mapMongoError(err, "token")
}

func (r *MongoTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	var token models.OneTimeToken
	if err := r.coll.FindOne(ctx, bson.M{"token": tokenHash}).Decode(&token); err != nil {
		return nil, mapMongoError(err, "token")
	}
	return &token, nil
}

func (r *MongoTokenRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoTokenRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"userId": userID})
}

func (r *MongoTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
