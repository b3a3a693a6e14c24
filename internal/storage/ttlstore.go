package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLStore is the interface behind the ephemeral de-duplication state:
// the contract status cache and the reconciliation debounce. The default
// deployment uses the in-memory implementation; a horizontally scaled
// deployment can swap in the Redis implementation without changing call
// sites.
type TTLStore interface {
	// Get unmarshals the value for key into dest. Returns false on a miss
	// or an expired entry.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores a value under key for ttl.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetIfAbsent stores the value only when the key is missing or expired.
	// Returns true when this call claimed the key.
	SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) error
}

// memoryEntry is a stored value with its expiry deadline.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryTTLStore is a process-local TTLStore. Values are stored as JSON so
// behavior matches the Redis implementation exactly. Expired entries are
// dropped lazily on read and swept opportunistically once the table grows
// past cleanupThreshold.
type MemoryTTLStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	cleanupThreshold int
}

// NewMemoryTTLStore creates an in-memory TTL store.
func NewMemoryTTLStore() *MemoryTTLStore {
	return &MemoryTTLStore{
		entries:          make(map[string]memoryEntry),
		now:              time.Now,
		cleanupThreshold: 500,
	}
}

// Get retrieves a value by key.
func (s *MemoryTTLStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set stores a value under key for ttl.
func (s *MemoryTTLStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	s.sweepLocked()
	s.mu.Unlock()
	return nil
}

// SetIfAbsent stores the value only when the key is missing or expired.
func (s *MemoryTTLStore) SetIfAbsent(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && s.now().Before(entry.expiresAt) {
		return false, nil
	}

	s.entries[key] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	s.sweepLocked()
	return true, nil
}

// Delete removes keys.
func (s *MemoryTTLStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// sweepLocked evicts expired entries once the table exceeds the size
// threshold. Best-effort, not exact.
func (s *MemoryTTLStore) sweepLocked() {
	if len(s.entries) <= s.cleanupThreshold {
		return
	}
	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of stored entries, including not-yet-swept expired
// ones.
func (s *MemoryTTLStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisTTLStore is a shared TTLStore backed by Redis. It trades the zero
// network cost of the in-memory store for cross-instance visibility.
type RedisTTLStore struct {
	client *redis.Client
}

// NewRedisTTLStore creates a Redis-backed TTL store.
func NewRedisTTLStore(cache *RedisCache) *RedisTTLStore {
	return &RedisTTLStore{client: cache.Client()}
}

// Get retrieves a value by key.
func (s *RedisTTLStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set stores a value under key for ttl.
func (s *RedisTTLStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// SetIfAbsent stores the value only when the key is missing.
func (s *RedisTTLStore) SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.client.SetNX(ctx, key, data, ttl).Result()
}

// Delete removes keys.
func (s *RedisTTLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
