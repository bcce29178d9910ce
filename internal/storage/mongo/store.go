package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "api_keys"

// Store implements storage.Storage on a MongoDB collection.
type Store struct {
	client *mongo.Client
	keys   *mongo.Collection
}

var _ storage.Storage = (*Store)(nil)

// New connects to MongoDB, verifies the connection and ensures the
// collection indexes exist.
func New(ctx context.Context, uri, database string) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &Store{
		client: client,
		keys:   client.Database(database).Collection(collectionName),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("id_idx").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetName("key_idx").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_idx"),
		},
	}
	if _, err := s.keys.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

func wrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return storage.DuplicateSecret(op)
	default:
		return storage.Unavailable(op, err)
	}
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return wrapError("ping", s.client.Ping(ctx, nil))
}

func (s *Store) ListKeys(ctx context.Context) ([]*domain.KeyRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.keys.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapError("list keys", err)
	}
	defer cursor.Close(ctx)

	keys := []*domain.KeyRecord{}
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, wrapError("list keys", err)
	}
	return keys, nil
}

func (s *Store) InsertKey(ctx context.Context, key *domain.NewKey) (*domain.KeyRecord, error) {
	if key.Type != domain.KeyTypeDev && key.Type != domain.KeyTypeProd {
		return nil, storage.Rejected("insert key", domain.ErrInvalidInput)
	}
	// BSON dates carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := &domain.KeyRecord{
		ID:        uuid.New().String(),
		Name:      key.Name,
		Type:      key.Type,
		Secret:    key.Secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.keys.InsertOne(ctx, rec); err != nil {
		return nil, wrapError("insert key", err)
	}
	return rec, nil
}

func (s *Store) UpdateKey(ctx context.Context, id string, update domain.KeyUpdate) (*domain.KeyRecord, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	return s.findOneAndUpdate(ctx, "update key", id, bson.M{"$set": set})
}

func (s *Store) DeleteKey(ctx context.Context, id string) error {
	result, err := s.keys.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return wrapError("delete key", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) FindKeyBySecret(ctx context.Context, secret string) (*domain.KeyRecord, error) {
	var rec domain.KeyRecord
	err := s.keys.FindOne(ctx, bson.M{"key": secret}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("find key", err)
	}
	return &rec, nil
}

func (s *Store) IncrementUsage(ctx context.Context, id string) (*domain.KeyRecord, error) {
	return s.findOneAndUpdate(ctx, "increment usage", id, bson.M{
		"$inc": bson.M{"usage": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) CountKeys(ctx context.Context) (int, error) {
	n, err := s.keys.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, wrapError("count keys", err)
	}
	return int(n), nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, op, id string, update bson.M) (*domain.KeyRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec domain.KeyRecord
	if err := s.keys.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&rec); err != nil {
		return nil, wrapError(op, err)
	}
	return &rec, nil
}
