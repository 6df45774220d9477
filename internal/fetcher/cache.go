package fetcher

import "sync"

// Cache holds fetched Azure dependency payloads for the duration of one audit
// run, keyed by flight key. Scope identity is part of the key, so a payload
// cached for one subscription is never visible to another.
type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.data.Load(key)
}

// Set stores a successful fetch. Failed fetches are never cached so a
// transient ARM error does not poison the rest of the run.
func (c *Cache) Set(key string, value any) {
	c.data.Store(key, value)
}
