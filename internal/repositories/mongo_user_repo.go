package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoUserRepository keeps users as documents in the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(m *database.Mongo) *MongoUserRepository {
	return &MongoUserRepository{coll: m.Database.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapMongoError(err, "_id")
	}
	return &user, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := prepareNewUser(user, time.Now().UTC()); err != nil {
		return err
	}

	_, err := r.coll.InsertOne(ctx, user)
	return mapMongoError(err, "email")
}

func (r *MongoUserRepository) Save(ctx context.Context, user *models.User) error {
	if err := prepareUser(user, time.Now().UTC()); err != nil {
		return err
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapMongoError(err, "email")
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// mapMongoError converts driver errors to domain errors. Duplicate key
// violations report the field the server names, or fallback when the
// message carries none.
func mapMongoError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w [%s]", models.ErrDuplicateKey, duplicateKeyField(err, fallback))
	}
	return err
}

// duplicateKeyField reads the offending field from a server message such as
// "E11000 duplicate key error collection: warden.users index: _id_ dup key: { _id: "..." }".
func duplicateKeyField(err error, fallback string) string {
	messages := []string{err.Error()}
	var we mongo.WriteException
	if errors.As(err, &we) {
		messages = messages[:0]
		for _, e := range we.WriteErrors {
			messages = append(messages, e.Message)
		}
	}

	for _, msg := range messages {
		if _, rest, ok := strings.Cut(msg, "dup key: { "); ok {
			if field, _, ok := strings.Cut(rest, ":"); ok && strings.TrimSpace(field) != "" {
				return strings.TrimSpace(field)
			}
		}
		if _, rest, ok := strings.Cut(msg, "index: "); ok {
			if name, _, _ := strings.Cut(rest, " "); name != "" {
				return name
			}
		}
	}
	return fallback
}
