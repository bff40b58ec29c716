package service

import (
	"context"
	"sync"
	"time"
)

// CacheService хранит ключи с TTL в памяти процесса.
type CacheService struct {
	mu    sync.Mutex
	cache map[string]time.Time
	now   func() time.Time
}

// NewCacheService создаёт пустой кэш. Очистку запускает Run.
func NewCacheService() *CacheService {
	return &CacheService{
		cache: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Remember кладёт ключ на ttl и сообщает, был ли он новым.
// Живой ключ не продлевается.
func (cs *CacheService) Remember(key string, ttl time.Duration) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	if expiresAt, ok := cs.cache[key]; ok && now.Before(expiresAt) {
		return false
	}
	cs.cache[key] = now.Add(ttl)
	return true
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// Len - число ключей, включая ещё не вычищенные просроченные.
func (cs *CacheService) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return len(cs.cache)
}

// Run периодически удаляет просроченные ключи до отмены ctx.
func (cs *CacheService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.evictExpired()
		}
	}
}

func (cs *CacheService) evictExpired() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, expiresAt := range cs.cache {
		if !now.Before(expiresAt) {
			delete(cs.cache, key)
		}
	}
}
