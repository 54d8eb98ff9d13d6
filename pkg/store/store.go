// Package store defines the keyed entity persistence used by the projection engine.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyMismatch is returned when a constructed entity does not carry the key it was requested under.
var ErrKeyMismatch = errors.New("entity key mismatch")

// Entity is a record addressable by type and string key.
type Entity interface {
	// EntityType names the collection (table) the entity lives in.
	EntityType() string
	// EntityID is the canonical key of the entity.
	EntityID() string
}

// Reader loads entities by key.
type Reader interface {
	// Load fills dst with the entity stored under id in dst's collection.
	// It reports false, without error, when no such entity exists.
	Load(ctx context.Context, id string, dst Entity) (bool, error)
}

// Writer persists entity mutations.
type Writer interface {
	// Save inserts or replaces the entity.
	Save(ctx context.Context, e Entity) error
	// Remove deletes the entity if present.
	Remove(ctx context.Context, entityType, id string) error
}

// Tx is a unit of work. Writes become visible to other readers on Commit.
type Tx interface {
	Reader
	Writer

	Commit() error
	Rollback() error
}

// Store is an entity backend.
type Store interface {
	Reader

	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Get loads the entity of type E stored under id.
func Get[E any, P interface {
	*E
	Entity
}](ctx context.Context, r Reader, id string) (P, bool, error) {
	dst := P(new(E))

	found, err := r.Load(ctx, id, dst)
	if err != nil {
		return nil, false, err
	}

	if !found {
		return nil, false, nil
	}

	return dst, true, nil
}

// GetOrCreate loads the entity stored under id or builds a default one with newFn.
// A created entity is not persisted until the caller saves it. newFn must key the
// entity under id so that every entity type has one canonical key formula.
func GetOrCreate[E any, P interface {
	*E
	Entity
}](ctx context.Context, r Reader, id string, newFn func() P) (P, bool, error) {
	existing, found, err := Get[E, P](ctx, r, id)
	if err != nil {
		return nil, false, err
	}

	if found {
		return existing, false, nil
	}

	created := newFn()
	if created.EntityID() != id {
		return nil, false, fmt.Errorf("%w: %s created as %q, requested %q",
			ErrKeyMismatch, created.EntityType(), created.EntityID(), id)
	}

	return created, true, nil
}
