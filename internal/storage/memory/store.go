// Package memory keeps entities as JSON documents in process memory.
// It backs replays, tests and dry runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

var _ store.Store = (*Store)(nil)

type key struct {
	entityType string
	id         string
}

// Store is safe for concurrent readers; transactions are serialized.
type Store struct {
	mu   sync.RWMutex
	docs map[key][]byte

	writer sync.Mutex
}

func New() *Store {
	return &Store{docs: make(map[key][]byte)}
}

func (s *Store) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	doc, ok := s.docs[key{dst.EntityType(), id}]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	return true, decode(doc, dst)
}

// Begin blocks until the previous transaction has finished.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.writer.Lock()
	return &tx{store: s, pending: make(map[key][]byte)}, nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of committed entities of entityType.
func (s *Store) Len(entityType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.docs {
		if k.entityType == entityType {
			n++
		}
	}
	return n
}

type tx struct {
	store   *Store
	pending map[key][]byte // nil value marks a removal
	done    bool
}

func (t *tx) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	if doc, ok := t.pending[key{dst.EntityType(), id}]; ok {
		if doc == nil {
			return false, nil
		}
		return true, decode(doc, dst)
	}

	return t.store.Load(ctx, id, dst)
}

func (t *tx) Save(ctx context.Context, e store.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	t.pending[key{e.EntityType(), e.EntityID()}] = doc
	return nil
}

func (t *tx) Remove(ctx context.Context, entityType, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.pending[key{entityType, id}] = nil
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}

	t.store.mu.Lock()
	for k, doc := range t.pending {
		if doc == nil {
			delete(t.store.docs, k)
			continue
		}
		t.store.docs[k] = doc
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *tx) Rollback() error {
	if !t.done {
		t.finish()
	}
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.pending = nil
	t.store.writer.Unlock()
}

func decode(doc []byte, dst store.Entity) error {
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", dst.EntityType(), err)
	}
	return nil
}
