// internal/database/mongo.go
package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
)

// Connect opens a client, pings the primary and returns the configured database.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the indexes the services rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "nickname", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		BinsCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		AlertsCollection: {
			{Keys: bson.D{{Key: "binId", Value: 1}, {Key: "isResolved", Value: 1}}},
		},
		CleaningLogsCollection: {
			{Keys: bson.D{{Key: "binId", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Collection is a Repository backed by a MongoDB collection.
type Collection[T any] struct {
	coll *mongo.Collection
	kind string
}

func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name), kind: name}
}

func (c *Collection[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert into %s: %w", c.kind, apperror.ErrConflict)
		}
		return apperror.Storage("insert into "+c.kind, err)
	}
	return nil
}

func (c *Collection[T]) ReplaceByID(ctx context.Context, id string, doc *T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("replace in %s: %w", c.kind, apperror.ErrConflict)
		}
		return apperror.Storage("replace in "+c.kind, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound(c.kind, id)
	}
	return nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var out T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(c.kind, id)
		}
		return nil, apperror.Storage("find in "+c.kind, err)
	}
	return &out, nil
}

func (c *Collection[T]) FindWhere(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	// ObjectID hex ids sort by creation time.
	cursor, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, apperror.Storage("find in "+c.kind, err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperror.Storage("decode "+c.kind, err)
	}
	return out, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var out T
	err := c.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s matching filter: %w", c.kind, apperror.ErrNotFound)
		}
		return nil, apperror.Storage("find in "+c.kind, err)
	}
	return &out, nil
}

func (c *Collection[T]) DeleteByID(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.Storage("delete from "+c.kind, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(c.kind, id)
	}
	return nil
}

func (c *Collection[T]) UpdateByID(ctx context.Context, id string, update Update) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out T
	err := c.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update.document(), opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(c.kind, id)
		}
		return nil, apperror.Storage("update in "+c.kind, err)
	}
	return &out, nil
}
