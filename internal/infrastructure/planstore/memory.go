package planstore

import (
	"sync"
	"time"

	"github.com/nutriplan/backend/internal/domain"
)

// storeItem is a single stored plan with its expiration
type storeItem struct {
	value      any
	expiration time.Time
}

// MemoryStore is a thread-safe in-memory store for generated plan results,
// keyed by plan id, with TTL-based expiry. Plans are immutable once stored.
type MemoryStore struct {
	data  map[string]storeItem
	ttl   time.Duration
	mutex sync.RWMutex
}

// NewMemoryStore creates a plan store with the given TTL and starts a
// background sweep for expired entries
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]storeItem),
		ttl:  ttl,
	}

	go store.cleanupExpired()

	return store
}

// Get retrieves a stored plan result by id
func (s *MemoryStore) Get(id string) (any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[id]
	if !exists {
		return nil, domain.ErrPlanNotFound
	}

	if time.Now().After(item.expiration) {
		return nil, domain.ErrPlanNotFound
	}

	return item.value, nil
}

// Put stores a plan result under the given id
func (s *MemoryStore) Put(id string, value any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[id] = storeItem{
		value:      value,
		expiration: time.Now().Add(s.ttl),
	}
}

// Delete removes a stored plan
func (s *MemoryStore) Delete(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, id)
}

// Len returns the current number of stored plans
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// cleanupExpired removes expired entries periodically
func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mutex.Lock()
		now := time.Now()
		for id, item := range s.data {
			if now.After(item.expiration) {
				delete(s.data, id)
			}
		}
		s.mutex.Unlock()
	}
}
