package catalog

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultViewCapacity = 10_000
	defaultViewWindow   = time.Hour
)

// ViewDeduper remembers recent (viewer, product) pairs so repeated page
// loads count once per window. Memory is bounded by capacity; the oldest
// pairs are evicted first.
type ViewDeduper struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func NewViewDeduper(capacity int, window time.Duration) *ViewDeduper {
	if capacity <= 0 {
		capacity = defaultViewCapacity
	}
	if window <= 0 {
		window = defaultViewWindow
	}
	return &ViewDeduper{seen: expirable.NewLRU[string, struct{}](capacity, nil, window)}
}

// First reports whether viewer has not viewed productID within the window,
// and remembers the pair.
func (d *ViewDeduper) First(viewer, productID string) bool {
	key := viewer + "|" + productID
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Get(key); ok {
		return false
	}
	d.seen.Add(key, struct{}{})
	return true
}

// Len returns the number of remembered pairs.
func (d *ViewDeduper) Len() int {
	return d.seen.Len()
}
