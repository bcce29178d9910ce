package service

import (
	"context"
	"sync"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/storage/memory"
)

// recordingStore wraps the memory store, counting calls per method and
// returning queued errors in place of delegating.
type recordingStore struct {
	*memory.Store

	mu    sync.Mutex
	calls map[string]int
	errs  map[string][]error
	gate  func(method string)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		Store: memory.New(),
		calls: map[string]int{},
		errs:  map[string][]error{},
	}
}

// failNext makes the next n calls to method fail with err.
func (s *recordingStore) failNext(method string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.errs[method] = append(s.errs[method], err)
	}
}

func (s *recordingStore) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *recordingStore) writes() int {
	return s.count("InsertKey") + s.count("UpdateKey") + s.count("DeleteKey") + s.count("IncrementUsage")
}

func (s *recordingStore) record(method string) error {
	s.mu.Lock()
	s.calls[method]++
	gate := s.gate
	var err error
	if q := s.errs[method]; len(q) > 0 {
		err, s.errs[method] = q[0], q[1:]
	}
	s.mu.Unlock()
	if gate != nil {
		gate(method)
	}
	return err
}

func (s *recordingStore) ListKeys(ctx context.Context) ([]*domain.KeyRecord, error) {
	if err := s.record("ListKeys"); err != nil {
		return nil, err
	}
	return s.Store.ListKeys(ctx)
}

func (s *recordingStore) InsertKey(ctx context.Context, key *domain.NewKey) (*domain.KeyRecord, error) {
	if err := s.record("InsertKey"); err != nil {
		return nil, err
	}
	return s.Store.InsertKey(ctx, key)
}

func (s *recordingStore) UpdateKey(ctx context.Context, id string, update domain.KeyUpdate) (*domain.KeyRecord, error) {
	if err := s.record("UpdateKey"); err != nil {
		return nil, err
	}
	return s.Store.UpdateKey(ctx, id, update)
}

func (s *recordingStore) DeleteKey(ctx context.Context, id string) error {
	if err := s.record("DeleteKey"); err != nil {
		return err
	}
	return s.Store.DeleteKey(ctx, id)
}

func (s *recordingStore) FindKeyBySecret(ctx context.Context, secret string) (*domain.KeyRecord, error) {
	if err := s.record("FindKeyBySecret"); err != nil {
		return nil, err
	}
	return s.Store.FindKeyBySecret(ctx, secret)
}

func (s *recordingStore) IncrementUsage(ctx context.Context, id string) (*domain.KeyRecord, error) {
	if err := s.record("IncrementUsage"); err != nil {
		return nil, err
	}
	return s.Store.IncrementUsage(ctx, id)
}
