package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// PlanCache keeps recently compiled plans so unchanged sources are not recompiled
type PlanCache struct {
	cache *lru.Cache

	// Statistics
	hits   int64
	misses int64

	ttl time.Duration
}

type cachedPlan struct {
	plan      *Plan
	timestamp time.Time
}

// NewPlanCache creates a new plan cache
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 128 // Default to 128 cached plans
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute // Default to 5 minute TTL
	}

	// lru.New only fails on a non-positive size
	cache, _ := lru.New(maxSize)
	return &PlanCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get retrieves a cached plan if it exists and is not expired
func (c *PlanCache) Get(key string) (*Plan, bool) {
	if c == nil {
		return nil, false
	}

	value, ok := c.cache.Get(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	cached := value.(*cachedPlan)
	if time.Since(cached.timestamp) > c.ttl {
		c.cache.Remove(key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return cached.plan, true
}

// Set stores a plan in the cache
func (c *PlanCache) Set(key string, plan *Plan) {
	if c == nil || plan == nil {
		return
	}
	c.cache.Add(key, &cachedPlan{plan: plan, timestamp: time.Now()})
}

// Clear removes all cached plans
func (c *PlanCache) Clear() {
	if c == nil {
		return
	}
	c.cache.Purge()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats returns cache statistics
func (c *PlanCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), c.cache.Len()
}

// CacheKey generates a deterministic key for a source file compiled with opts
func CacheKey(file, source string, opts Options) string {
	h := sha256.New()

	fmt.Fprintf(h, "FILE:%s;", file)
	fmt.Fprintf(h, "SOURCE:%d:%s;", len(source), source)

	// Options that affect the plan
	outputs := append([]string(nil), opts.Outputs...)
	sort.Strings(outputs)
	fmt.Fprintf(h, "OUTPUTS:")
	for _, o := range outputs {
		fmt.Fprintf(h, "%s;", o)
	}
	fmt.Fprintf(h, "MODE:%v;", opts.Mode)

	return hex.EncodeToString(h.Sum(nil))
}
