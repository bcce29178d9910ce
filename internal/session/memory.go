package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Entries expire with their
// session and are swept every cleanupInterval.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	c := *s
	m.cache.Set(s.ID, &c, ttl)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s := *v.(*Session)
	if s.Expired(time.Now()) {
		m.cache.Delete(id)
		return nil, ErrExpired
	}
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
