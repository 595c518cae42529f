package resolve

import (
	"strings"
	"sync"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/similarity"
)

// SessionCache memoizes registry lookups within a single run, keyed by
// (normalized name, country hint). It is passed explicitly into the resolver
// rather than held as ambient state, so concurrent runs and tests never
// interfere. The cache is not durable.
type SessionCache struct {
	mu sync.RWMutex
	m  map[string][]model.CanonicalCompany
}

// NewSessionCache creates an empty per-run cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{m: make(map[string][]model.CanonicalCompany)}
}

func cacheKey(name, countryHint string) string {
	return similarity.NormalizeName(name) + "|" + strings.ToUpper(countryHint)
}

// Get returns the cached candidates and whether the key was present. A
// present empty slice is a valid negative result.
func (c *SessionCache) Get(name, countryHint string) ([]model.CanonicalCompany, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[cacheKey(name, countryHint)]
	return v, ok
}

// Put stores the candidates for a key.
func (c *SessionCache) Put(name, countryHint string, companies []model.CanonicalCompany) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[cacheKey(name, countryHint)] = companies
}

// Len returns the number of cached keys.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
