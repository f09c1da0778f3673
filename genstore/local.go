package genstore

import (
	"context"
	"sync"
	"time"
)

type localGen struct {
	gen    uint64
	bumped time.Time
}

// LocalGenStore keeps generations in-process (default).
// With a positive interval and retention, a background loop forgets
// counters that have not been bumped for longer than retention.
type LocalGenStore struct {
	mu   sync.RWMutex
	gens map[string]localGen

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{gens: make(map[string]localGen)}
	if cleanupInterval > 0 && retention > 0 {
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.sweep(cleanupInterval, retention)
	}
	return s
}

func (s *LocalGenStore) sweep(every, retention time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stopCh:
			return
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[k].gen, nil
}

// SnapshotMany reads all keys under one read lock.
func (s *LocalGenStore) SnapshotMany(_ context.Context, ks []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(ks))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range ks {
		out[k] = s.gens[k].gen
	}
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.gens[k]
	e.gen++
	e.bumped = now
	s.gens[k] = e
	return e.gen, nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.gens {
		if e.bumped.Before(cutoff) {
			delete(s.gens, k)
		}
	}
}

// Close stops the sweep loop. Safe to call more than once.
func (s *LocalGenStore) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.wg.Wait()
		}
	})
	return nil
}
