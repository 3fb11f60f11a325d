package filter

import (
	"fmt"
	"os"
	"time"

	"github.com/maypok86/otter"
)

// decision is the cached outcome of filtering one file, valid while the file keeps
// the modification time and size it had when it was filtered.
type decision struct {
	modTime  time.Time
	size     int64
	class    Classification
	accepted bool
}

// DecisionCache remembers per-file filter decisions across runs so that a watch
// session only reprocesses files that changed. It is safe for concurrent use.
type DecisionCache struct {
	cache otter.Cache[string, decision]
}

// NewDecisionCache creates a cache holding at most capacity decisions.
func NewDecisionCache(capacity int) (*DecisionCache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be at least 1, got %d", capacity)
	}

	cache, err := otter.MustBuilder[string, decision](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build decision cache: %w", err)
	}

	return &DecisionCache{cache: cache}, nil
}

func (c *DecisionCache) lookup(path string, info os.FileInfo) (decision, bool) {
	d, ok := c.cache.Get(path)
	if !ok {
		return decision{}, false
	}
	if !d.modTime.Equal(info.ModTime()) || d.size != info.Size() {
		c.cache.Delete(path)
		return decision{}, false
	}
	return d, true
}

func (c *DecisionCache) store(path string, info os.FileInfo, class Classification, accepted bool) {
	c.cache.Set(path, decision{
		modTime:  info.ModTime(),
		size:     info.Size(),
		class:    class,
		accepted: accepted,
	})
}

// Invalidate drops the decisions for paths.
func (c *DecisionCache) Invalidate(paths ...string) {
	for _, path := range paths {
		c.cache.Delete(path)
	}
}

// Len returns the number of cached decisions.
func (c *DecisionCache) Len() int {
	return c.cache.Size()
}

// Close releases the cache's background resources.
func (c *DecisionCache) Close() {
	c.cache.Close()
}
