package fetch

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/amishk599/jobsieve/internal/model"
)

// PageCache holds successfully fetched pages keyed by URL.
type PageCache struct {
	cache *gocache.Cache
}

// NewPageCache creates a cache whose entries expire after ttl.
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *PageCache) Get(url string) (model.Page, bool) {
	if v, found := c.cache.Get(url); found {
		return v.(model.Page), true
	}
	return model.Page{}, false
}

func (c *PageCache) Set(url string, page model.Page) {
	c.cache.SetDefault(url, page)
}

func (c *PageCache) Delete(url string) {
	c.cache.Delete(url)
}

// Len reports the number of cached pages, including expired ones not yet evicted.
func (c *PageCache) Len() int {
	return c.cache.ItemCount()
}

func (c *PageCache) Flush() {
	c.cache.Flush()
}
