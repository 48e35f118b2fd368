package pattern

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// TemplateCache keeps compiled templates keyed by a caller-chosen string and
// drops the least recently used one when full. Concurrent GetOrCompile calls
// for the same key share one compilation.
type TemplateCache struct {
	mu      sync.Mutex
	config  CacheConfig
	entries map[string]*list.Element
	recency *list.List // *cacheEntry, most recent first
	group   singleflight.Group
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key      string
	template *Template
	expires  time.Time
}

// NewTemplateCache creates a cache sized by the global configuration.
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		config:  config,
		entries: make(map[string]*list.Element),
		recency: list.New(),
	}
}

// GetOrCompile returns the cached template for key, or calls compile and
// caches its result. Compile errors are returned to every waiting caller and
// are not cached.
func (tc *TemplateCache) GetOrCompile(key string, compile func() (*Template, error)) (*Template, error) {
	if tc.config.MaxSize == 0 {
		return compile()
	}

	tc.mu.Lock()
	tmpl, ok := tc.lookupLocked(key)
	tc.mu.Unlock()
	if ok {
		return tmpl, nil
	}

	v, err, _ := tc.group.Do(key, func() (interface{}, error) {
		// a compile that finished after the lookup above already stored it
		tc.mu.Lock()
		tmpl, ok := tc.entryLocked(key)
		tc.mu.Unlock()
		if ok {
			return tmpl, nil
		}

		tmpl, err := compile()
		if err != nil {
			return nil, err
		}
		if tmpl != nil {
			tc.Set(key, tmpl)
		}
		return tmpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

// Get returns the template cached for key, if it is present and not expired.
func (tc *TemplateCache) Get(key string) (*Template, bool) {
	if tc.config.MaxSize == 0 {
		return nil, false
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.lookupLocked(key)
}

// Set stores template under key, evicting the least recently used entry when
// the cache is full.
func (tc *TemplateCache) Set(key string, template *Template) {
	if tc.config.MaxSize == 0 {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.storeLocked(key, template)
}

func (tc *TemplateCache) lookupLocked(key string) (*Template, bool) {
	tmpl, ok := tc.entryLocked(key)
	if ok {
		tc.hits++
	} else {
		tc.misses++
	}
	return tmpl, ok
}

// entryLocked is lookupLocked without touching the counters.
func (tc *TemplateCache) entryLocked(key string) (*Template, bool) {
	elem, ok := tc.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		tc.dropLocked(elem)
		return nil, false
	}
	tc.recency.MoveToFront(elem)
	return entry.template, true
}

func (tc *TemplateCache) storeLocked(key string, template *Template) {
	var expires time.Time
	if tc.config.TTL > 0 {
		expires = time.Now().Add(tc.config.TTL)
	}

	if elem, ok := tc.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.template, entry.expires = template, expires
		tc.recency.MoveToFront(elem)
		return
	}

	for tc.recency.Len() >= tc.config.MaxSize {
		tc.dropLocked(tc.recency.Back())
	}
	tc.entries[key] = tc.recency.PushFront(&cacheEntry{key: key, template: template, expires: expires})
}

func (tc *TemplateCache) dropLocked(elem *list.Element) {
	delete(tc.entries, elem.Value.(*cacheEntry).key)
	tc.recency.Remove(elem)
}

// Remove drops key from the cache.
func (tc *TemplateCache) Remove(key string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if elem, ok := tc.entries[key]; ok {
		tc.dropLocked(elem)
	}
}

// Clear drops every cached template. Counters are kept.
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries = make(map[string]*list.Element)
	tc.recency.Init()
}

// Size returns the current number of cached templates
func (tc *TemplateCache) Size() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.entries)
}

// Stats returns the hit and miss counters and the current size.
func (tc *TemplateCache) Stats() CacheStats {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return CacheStats{Hits: tc.hits, Misses: tc.misses, Size: len(tc.entries)}
}
