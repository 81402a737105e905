package worker

import "sync"

// CacheStorage holds named response caches. Cache names carry the runtime
// version so stale namespaces can be garbage-collected on activation.
type CacheStorage struct {
	mu     sync.RWMutex
	caches map[string]*Cache
}

func NewCacheStorage() *CacheStorage {
	return &CacheStorage{caches: make(map[string]*Cache)}
}

// Open returns the cache with the given name, creating it if necessary.
func (s *CacheStorage) Open(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &Cache{entries: make(map[string]*Response)}
		s.caches[name] = c
	}
	return c
}

// Keys lists all cache names currently present.
func (s *CacheStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.caches))
	for name := range s.caches {
		keys = append(keys, name)
	}
	return keys
}

// Delete removes a named cache and reports whether it existed.
func (s *CacheStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok
}

// Cache maps request URLs to stored responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Response
}

// Put stores a response for the given request URL, replacing any previous one.
func (c *Cache) Put(url string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = resp
}

// Match returns the stored response for the URL, if any.
func (c *Cache) Match(url string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.entries[url]
	return resp, ok
}

// Len reports the number of stored responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
