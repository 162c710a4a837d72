// internal/database/memory.go
package database

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartbin-api-server/internal/apperror"
)

// MemoryRepository is a process-local Repository. Documents are kept as
// encoded BSON so callers never share memory with the store, and filters and
// updates see the same field names and types MongoDB would.
type MemoryRepository[T any] struct {
	mu    sync.RWMutex
	kind  string
	docs  map[string]bson.Raw
	order []string
}

func NewMemoryRepository[T any](kind string) *MemoryRepository[T] {
	return &MemoryRepository[T]{kind: kind, docs: map[string]bson.Raw{}}
}

func (r *MemoryRepository[T]) Insert(ctx context.Context, doc *T) error {
	raw, id, err := encode(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[id]; exists {
		return fmt.Errorf("insert into %s: id %q: %w", r.kind, id, apperror.ErrConflict)
	}
	r.docs[id] = raw
	r.order = append(r.order, id)
	return nil
}

func (r *MemoryRepository[T]) ReplaceByID(ctx context.Context, id string, doc *T) error {
	raw, docID, err := encode(doc)
	if err != nil {
		return err
	}
	if docID != id {
		return apperror.Validation("replacement id %q does not match %q", docID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[id]; !exists {
		return apperror.NotFound(r.kind, id)
	}
	r.docs[id] = raw
	return nil
}

func (r *MemoryRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	r.mu.RLock()
	raw, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperror.NotFound(r.kind, id)
	}
	return decode[T](raw)
}

func (r *MemoryRepository[T]) FindWhere(ctx context.Context, filter bson.M) ([]T, error) {
	want, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []T{}
	for _, id := range r.order {
		raw := r.docs[id]
		ok, err := matches(raw, want)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		doc, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (r *MemoryRepository[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	want, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		ok, err := matches(r.docs[id], want)
		if err != nil {
			return nil, err
		}
		if ok {
			return decode[T](r.docs[id])
		}
	}
	return nil, fmt.Errorf("%s matching filter: %w", r.kind, apperror.ErrNotFound)
}

func (r *MemoryRepository[T]) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return apperror.NotFound(r.kind, id)
	}
	delete(r.docs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository[T]) UpdateByID(ctx context.Context, id string, update Update) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound(r.kind, id)
	}

	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, apperror.Storage("decode "+r.kind, err)
	}
	for k, v := range update.Set {
		m[k] = v
	}
	for k, v := range update.Push {
		switch arr := m[k].(type) {
		case nil:
			m[k] = primitive.A{v}
		case primitive.A:
			m[k] = append(arr, v)
		default:
			return nil, apperror.Validation("cannot push to non-array field %q", k)
		}
	}

	next, err := bson.Marshal(m)
	if err != nil {
		return nil, apperror.Storage("encode "+r.kind, err)
	}
	r.docs[id] = next
	return decode[T](next)
}

// Len returns the number of stored documents.
func (r *MemoryRepository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func encode(doc any) (bson.Raw, string, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", apperror.Storage("encode document", err)
	}
	raw := bson.Raw(data)
	id, ok := raw.Lookup("_id").StringValueOK()
	if !ok || id == "" {
		return nil, "", apperror.Validation("document has no string _id")
	}
	return raw, id, nil
}

func decode[T any](raw bson.Raw) (*T, error) {
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, apperror.Storage("decode document", err)
	}
	return &out, nil
}

// normalize round-trips a filter through BSON so typed values (string enums,
// ints) compare equal to what is stored.
func normalize(filter bson.M) (bson.M, error) {
	if len(filter) == 0 {
		return bson.M{}, nil
	}
	data, err := bson.Marshal(filter)
	if err != nil {
		return nil, apperror.Validation("invalid filter: %v", err)
	}
	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, apperror.Validation("invalid filter: %v", err)
	}
	return out, nil
}

func matches(raw bson.Raw, want bson.M) (bool, error) {
	if len(want) == 0 {
		return true, nil
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return false, apperror.Storage("decode document", err)
	}
	for k, v := range want {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false, nil
		}
	}
	return true, nil
}
