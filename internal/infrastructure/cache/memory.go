package cache

import (
	"context"
	"sync"
	"time"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// MemoryRecordCache is an in-process record cache with expiration. It backs
// single-node development setups where Redis is not running, and tests.
type MemoryRecordCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]*memoryItem
}

type memoryItem struct {
	record     *entities.CallRecord
	expireTime time.Time
}

// NewMemoryRecordCache creates a new in-memory record cache
func NewMemoryRecordCache(ttl time.Duration) *MemoryRecordCache {
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	store := &MemoryRecordCache{
		ttl:   ttl,
		items: make(map[string]*memoryItem),
	}

	// Cleanup goroutine to remove expired items
	go store.cleanupExpired()

	return store
}

// GetCallRecord returns the cached record, or nil on a miss
func (ms *MemoryRecordCache) GetCallRecord(_ context.Context, callID string) (*entities.CallRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[callID]
	if !exists || time.Now().After(item.expireTime) {
		return nil, nil
	}
	return item.record, nil
}

// SetCallRecord stores the record under the configured TTL
func (ms *MemoryRecordCache) SetCallRecord(_ context.Context, record *entities.CallRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[record.CallID] = &memoryItem{
		record:     record,
		expireTime: time.Now().Add(ms.ttl),
	}
	return nil
}

// DeleteCallRecord invalidates a cached record
func (ms *MemoryRecordCache) DeleteCallRecord(_ context.Context, callID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.items, callID)
	return nil
}

// cleanupExpired periodically removes expired items
func (ms *MemoryRecordCache) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ms.mu.Lock()
		now := time.Now()
		for key, item := range ms.items {
			if now.After(item.expireTime) {
				delete(ms.items, key)
			}
		}
		ms.mu.Unlock()
	}
}
