// internal/database/repository.go
package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	BinsCollection         = "bins"
	AlertsCollection       = "alerts"
	UsersCollection        = "users"
	CleaningLogsCollection = "cleaningLogs"
	ShiftLogsCollection    = "shiftLogs"
)

// Update is a single-document update expression. Set replaces top-level
// fields and Push appends one element to top-level arrays; both are applied
// in one atomic step.
type Update struct {
	Set  bson.M
	Push bson.M
}

func (u Update) document() bson.M {
	doc := bson.M{}
	if len(u.Set) > 0 {
		doc["$set"] = u.Set
	}
	if len(u.Push) > 0 {
		doc["$push"] = u.Push
	}
	return doc
}

// Repository is the storage collaborator used by the services. Documents are
// keyed by a string "_id". Filters support top-level equality only and
// results come back in insertion order. The repository never stamps
// timestamps; callers own CreatedAt/UpdatedAt.
type Repository[T any] interface {
	Insert(ctx context.Context, doc *T) error
	ReplaceByID(ctx context.Context, id string, doc *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	FindWhere(ctx context.Context, filter bson.M) ([]T, error)
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	DeleteByID(ctx context.Context, id string) error
	UpdateByID(ctx context.Context, id string, update Update) (*T, error)
}

// NewID returns a fresh document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
