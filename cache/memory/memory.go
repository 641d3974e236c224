package memory

import (
	"context"
	"sync"
	"time"

	"photosearch/cache"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Provider is an in-memory cache whose entries expire after a fixed TTL
type Provider struct {
	ttl   time.Duration
	now   func() time.Time
	cache map[string]entry
	mutex sync.RWMutex
}

// New returns a Provider keeping entries for ttl. A ttl of zero or less keeps them forever.
func New(ttl time.Duration) *Provider {
	return &Provider{
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]entry),
	}
}

// Get returns an object from the cache if it exists and has not expired
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	p.mutex.RLock()
	e, exists := p.cache[key]
	p.mutex.RUnlock()

	if !exists {
		return nil, cache.ErrNotFound
	}

	if !e.expires.IsZero() && !p.now().Before(e.expires) {
		p.mutex.Lock()
		if cur, ok := p.cache[key]; ok && cur.expires.Equal(e.expires) {
			delete(p.cache, key)
		}
		p.mutex.Unlock()
		return nil, cache.ErrNotFound
	}

	return e.data, nil
}

// Set adds an object to the cache, replacing any earlier entry for key
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	e := entry{data: data}
	if p.ttl > 0 {
		e.expires = p.now().Add(p.ttl)
	}

	p.mutex.Lock()
	p.cache[key] = e
	p.mutex.Unlock()

	return nil
}

// Len returns the number of stored entries, expired ones included until they are read
func (p *Provider) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.cache)
}

// Shutdown drops all entries
func (p *Provider) Shutdown() {
	p.mutex.Lock()
	p.cache = make(map[string]entry)
	p.mutex.Unlock()
}
