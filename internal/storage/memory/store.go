package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of the storage interface for testing
// and single-process use. It enforces the same constraints as the SQL schema.
type Store struct {
	mu sync.RWMutex

	keys     map[string]*entry // key: id
	bySecret map[string]string // secret -> id
	seq      uint64
	now      func() time.Time
}

// entry keeps insertion order so that keys created within the same clock tick
// still list newest first.
type entry struct {
	rec *domain.KeyRecord
	seq uint64
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		keys:     make(map[string]*entry),
		bySecret: make(map[string]string),
		now:      time.Now,
	}
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) ListKeys(ctx context.Context) ([]*domain.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*entry, 0, len(s.keys))
	for _, e := range s.keys {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*domain.KeyRecord, len(entries))
	for i, e := range entries {
		result[i] = e.rec.Clone()
	}
	return result, nil
}

func (s *Store) InsertKey(ctx context.Context, key *domain.NewKey) (*domain.KeyRecord, error) {
	if key.Type != domain.KeyTypeDev && key.Type != domain.KeyTypeProd {
		return nil, storage.Rejected("insert key", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySecret[key.Secret]; exists {
		return nil, storage.DuplicateSecret("insert key")
	}

	now := s.now()
	s.seq++
	rec := &domain.KeyRecord{
		ID:        uuid.New().String(),
		Name:      key.Name,
		Type:      key.Type,
		Secret:    key.Secret,
		Usage:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.keys[rec.ID] = &entry{rec: rec, seq: s.seq}
	s.bySecret[rec.Secret] = rec.ID
	return rec.Clone(), nil
}

func (s *Store) UpdateKey(ctx context.Context, id string, update domain.KeyUpdate) (*domain.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Name != nil {
		e.rec.Name = *update.Name
	}
	e.rec.UpdatedAt = s.now()
	return e.rec.Clone(), nil
}

func (s *Store) DeleteKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.keys[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.bySecret, e.rec.Secret)
	delete(s.keys, id)
	return nil
}

func (s *Store) FindKeyBySecret(ctx context.Context, secret string) (*domain.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySecret[secret]
	if !ok {
		return nil, nil
	}
	return s.keys[id].rec.Clone(), nil
}

func (s *Store) IncrementUsage(ctx context.Context, id string) (*domain.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.rec.Usage++
	e.rec.UpdatedAt = s.now()
	return e.rec.Clone(), nil
}

func (s *Store) CountKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), nil
}
