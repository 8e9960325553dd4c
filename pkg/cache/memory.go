package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryItem stores a cached value or set with expiration.
type MemoryItem struct {
	Value    []byte
	Members  map[string]struct{}
	ExpireAt time.Time
}

// IsExpired checks if item has expired.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return now.After(m.ExpireAt)
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
// Values are stored as JSON so Get decodes into any destination type.
type MemoryCache struct {
	data       map[string]*MemoryItem
	access     map[string]time.Time
	mutex      sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	ticker     *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
	now        func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		DefaultTTL:      7 * 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxSize < 1 {
		cfg.MaxSize = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	mc := &MemoryCache{
		data:       make(map[string]*MemoryItem),
		access:     make(map[string]time.Time),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		ticker:     time.NewTicker(cfg.CleanupInterval),
		done:       make(chan struct{}),
		now:        time.Now,
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.put(key, &MemoryItem{Value: data, ExpireAt: mc.expiry(expiration)})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item := mc.lookup(key)
	var data []byte
	if item != nil {
		data = item.Value
	}
	mc.mutex.Unlock()

	if item == nil || item.Members != nil {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		mc.remove(key)
	}
	return nil
}

func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for key := range mc.data {
		if ok, _ := path.Match(pattern, key); ok {
			mc.remove(key)
		}
	}
	return nil
}

func (mc *MemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("cache keys %q: %w", pattern, err)
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	keys := make([]string, 0)
	for key, item := range mc.data {
		if item.IsExpired(now) {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		if mc.lookup(key) != nil {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) AddToSet(_ context.Context, key, member string, expiration time.Duration) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item := mc.lookup(key)
	if item == nil {
		item = &MemoryItem{Members: make(map[string]struct{}), ExpireAt: mc.expiry(expiration)}
		mc.put(key, item)
	}
	if item.Members == nil {
		return false, fmt.Errorf("cache sadd %s: key holds a value", key)
	}
	if _, ok := item.Members[member]; ok {
		return false, nil
	}
	item.Members[member] = struct{}{}
	return true, nil
}

func (mc *MemoryCache) IsMember(_ context.Context, key, member string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item := mc.lookup(key)
	if item == nil || item.Members == nil {
		return false, nil
	}
	_, ok := item.Members[member]
	return ok, nil
}

func (mc *MemoryCache) RemoveFromSet(_ context.Context, key, member string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item := mc.lookup(key)
	if item == nil {
		return nil
	}
	if item.Members == nil {
		return fmt.Errorf("cache srem %s: key holds a value", key)
	}
	delete(item.Members, member)
	return nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.lookup(key) != nil {
		return false, nil
	}

	mc.put(key, &MemoryItem{Value: []byte(`"locked"`), ExpireAt: mc.expiry(ttl)})
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len returns the number of stored keys, expired or not.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}

// lookup returns a live item and refreshes its access time. Callers hold the mutex.
func (mc *MemoryCache) lookup(key string) *MemoryItem {
	item, ok := mc.data[key]
	if !ok {
		return nil
	}
	now := mc.now()
	if item.IsExpired(now) {
		mc.remove(key)
		return nil
	}
	mc.access[key] = now
	return item
}

func (mc *MemoryCache) put(key string, item *MemoryItem) {
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = item
	mc.access[key] = mc.now()
}

func (mc *MemoryCache) remove(key string) {
	delete(mc.data, key)
	delete(mc.access, key)
}

func (mc *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	return mc.now().Add(ttl)
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		mc.remove(oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.IsExpired(now) {
					mc.remove(key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return json.Marshal(v)
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	if b, ok := dest.(*[]byte); ok {
		*b = append((*b)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
